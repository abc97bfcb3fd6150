// Package devseed loads sample church records for local development.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/johnrichard23/connectedin/internal/domain/model"
)

// Churches is the subset of the church service the seeder needs.
type Churches interface {
	Create(ctx context.Context, req model.CreateChurchRequest) (*model.Church, error)
	List(ctx context.Context) ([]*model.Church, error)
}

// Result summarizes a seeding run.
type Result struct {
	Created int
	Skipped int
}

// SampleChurches returns the development fixtures.
func SampleChurches() []model.CreateChurchRequest {
	return []model.CreateChurchRequest{
		{
			Name:             "Grace Community Church",
			ShortDescription: "A welcoming family church in the heart of the city.",
			Description:      "Sunday worship, youth ministry and weekday small groups.",
			Phone:            "+63 2 8123 4567",
			Email:            "hello@gracecommunity.example",
			Address:          "123 Rizal Avenue, Manila",
			CountryGroup:     "Philippines",
			Region:           "NCR",
			ServiceTimes:     []string{"Sunday 8:00 AM", "Sunday 10:30 AM"},
			Latitude:         14.5995,
			Longitude:        120.9842,
			Photos:           []string{},
			FacebookURL:      "https://facebook.com/gracecommunity",
			Donations: &model.Donations{
				GCashNumber: "0917 123 4567",
				BankAccount: model.BankAccount{AccountNumber: "0012-3456-78", BankName: "BPI"},
			},
		},
		{
			Name:             "Hope Fellowship Cebu",
			ShortDescription: "Bible-centered fellowship for students and families.",
			Phone:            "+63 32 234 5678",
			Email:            "info@hopecebu.example",
			Address:          "45 Osmeña Boulevard, Cebu City",
			CountryGroup:     "Philippines",
			Region:           "Central Visayas",
			ServiceTimes:     []string{"Saturday 5:00 PM", "Sunday 9:00 AM"},
			Latitude:         10.3157,
			Longitude:        123.8854,
			Photos:           []string{},
			InstagramURL:     "https://instagram.com/hopecebu",
		},
		{
			Name:             "Living Waters Davao",
			ShortDescription: "Worship, prayer and community outreach.",
			Address:          "8 J.P. Laurel Avenue, Davao City",
			CountryGroup:     "Philippines",
			Region:           "Davao",
			ServiceTimes:     []string{"Sunday 9:30 AM"},
			Latitude:         7.1907,
			Longitude:        125.4553,
			Photos:           []string{},
			SocialLinks:      map[string]string{"youtube": "https://youtube.com/@livingwatersdavao"},
		},
	}
}

// Run creates every sample church whose name is not already present.
// A failed create is logged and counted; the remaining fixtures are still attempted.
func Run(ctx context.Context, churches Churches, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	existing, err := churches.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list churches: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[strings.ToLower(c.Name)] = true
	}

	var (
		res  Result
		errs []error
	)
	for _, req := range SampleChurches() {
		if seen[strings.ToLower(req.Name)] {
			res.Skipped++
			continue
		}
		created, createErr := churches.Create(ctx, req)
		if createErr != nil {
			logger.ErrorContext(ctx, "seed church failed", "name", req.Name, "error", createErr)
			errs = append(errs, fmt.Errorf("seed %q: %w", req.Name, createErr))
			continue
		}
		logger.InfoContext(ctx, "seeded church", "name", created.Name, "id", created.ID)
		res.Created++
	}
	return res, errors.Join(errs...)
}
