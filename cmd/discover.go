package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
	"github.com/brewtrail/brewtrail/internal/resilience"
)

var (
	discoverLat    float64
	discoverLng    float64
	discoverRadius float64
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover breweries and wineries around a point and store them",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		radius := discoverRadius
		if radius <= 0 {
			radius = cfg.Overpass.DefaultRadiusKM
		}

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.OnRetry = resilience.RetryLogger("overpass", "area search")

		var venues []model.Venue
		err = resilience.Do(cmd.Context(), retryCfg, func(ctx context.Context) error {
			var searchErr error
			venues, searchErr = env.Discoverer.SearchArea(ctx, discoverLat, discoverLng, radius)
			return searchErr
		})
		if err != nil {
			return err
		}

		created := 0
		for i := range venues {
			v, err := env.VenueStore.Create(cmd.Context(), &venues[i])
			if err != nil {
				zap.L().Warn("venue store failed",
					zap.String("name", venues[i].Name), zap.Error(err))
				continue
			}
			created++
			zap.L().Debug("venue stored",
				zap.String("id", v.ID), zap.String("name", v.Name))
		}

		fmt.Printf("discovered %d venues, stored %d\n", len(venues), created)
		return nil
	},
}

func init() {
	discoverCmd.Flags().Float64Var(&discoverLat, "lat", 0, "center latitude")
	discoverCmd.Flags().Float64Var(&discoverLng, "lng", 0, "center longitude")
	discoverCmd.Flags().Float64Var(&discoverRadius, "radius-km", 0, "search radius in km (default from config)")
	_ = discoverCmd.MarkFlagRequired("lat")
	_ = discoverCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(discoverCmd)
}
