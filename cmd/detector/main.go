package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/skywatch/flights-backend-go/internal/config"
	"github.com/skywatch/flights-backend-go/internal/database"
	"github.com/skywatch/flights-backend-go/internal/detection"
	"github.com/skywatch/flights-backend-go/internal/ml"
	"github.com/skywatch/flights-backend-go/internal/repository"
)

func main() {
	root := &cobra.Command{
		Use:          "detector",
		Short:        "Flight telemetry anomaly detection backend",
		SilenceUsage: true,
	}

	root.AddCommand(newTrainCmd())
	root.AddCommand(newDetectCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the database and applies pending migrations
func openStore(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newTrainCmd() *cobra.Command {
	var (
		contamination float64
		saveModel     bool
		runDetection  bool
		flightLimit   int
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the flight anomaly detection model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if contamination == 0 {
				contamination = cfg.Contamination
			}

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			flights := repository.NewFlightRepository(db)
			anomalies := repository.NewAnomalyRepository(db)

			count, err := flights.CountPoints()
			if err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("no flight data available: import some flights first")
			}
			log.Printf("[Train] Found %d flight records in database", count)

			points, err := flights.AllPoints()
			if err != nil {
				return err
			}
			if flightLimit > 0 && flightLimit < len(points) {
				points = points[:flightLimit]
				log.Printf("[Train] Limited to %d records for training", flightLimit)
			}

			model := ml.NewModel(ml.WithContamination(contamination), ml.WithSeed(cfg.RandomSeed))
			report, err := model.Train(points)
			if err != nil {
				return err
			}

			fmt.Printf("Model training completed\n")
			fmt.Printf("  Training samples: %d\n", report.Samples)
			fmt.Printf("  Features count:   %d\n", report.FeatureCount)
			fmt.Printf("  Contamination:    %v\n", report.Contamination)
			fmt.Printf("  Training time:    %.2fs\n", report.TrainingSeconds)

			if saveModel {
				path, err := model.Save(cfg.ModelPath)
				if err != nil {
					return err
				}
				fmt.Printf("Model saved to: %s\n", path)
			}

			if runDetection {
				pipeline := detection.NewPipeline(model, flights, anomalies,
					detection.WithBatchSize(cfg.BatchSize))
				result := pipeline.RunFull(false)
				if !result.Success {
					return fmt.Errorf("anomaly detection failed: %s", result.Error)
				}
				fmt.Printf("Anomaly detection completed\n")
				fmt.Printf("  Points processed:   %d\n", result.FlightsProcessed)
				fmt.Printf("  Anomalies detected: %d\n", result.AnomaliesDetected)
				fmt.Printf("  Total time:         %.2fs\n", result.TotalSeconds)
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&contamination, "contamination", 0, "expected proportion of outliers (default from config)")
	cmd.Flags().BoolVar(&saveModel, "save-model", false, "save the trained model to disk")
	cmd.Flags().BoolVar(&runDetection, "run-detection", false, "run anomaly detection on all flights after training")
	cmd.Flags().IntVar(&flightLimit, "flight-limit", 0, "limit the number of records used for training")

	return cmd
}

func newDetectCmd() *cobra.Command {
	var (
		modelPath     string
		flightIDs     []string
		clearExisting bool
		minConfidence float64
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run anomaly detection on flight data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			flights := repository.NewFlightRepository(db)
			anomalies := repository.NewAnomalyRepository(db)

			count, err := flights.CountPoints()
			if err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("no flight data available: import some flights first")
			}

			if clearExisting {
				deleted, err := anomalies.DeleteAll()
				if err != nil {
					return err
				}
				log.Printf("[Detect] Cleared %d existing anomaly records", deleted)
			}

			model := ml.NewModel(ml.WithContamination(cfg.Contamination), ml.WithSeed(cfg.RandomSeed))
			if modelPath != "" {
				if err := model.Load(modelPath); err != nil {
					return fmt.Errorf("failed to load model: %w", err)
				}
			} else {
				log.Printf("[Detect] No model file specified, training a new model")
				points, err := flights.AllPoints()
				if err != nil {
					return err
				}
				report, err := model.Train(points)
				if err != nil {
					return err
				}
				log.Printf("[Detect] Model trained with %d samples", report.Samples)
			}

			pipeline := detection.NewPipeline(model, flights, anomalies,
				detection.WithBatchSize(cfg.BatchSize))

			var processed, detected int
			if len(flightIDs) > 0 {
				log.Printf("[Detect] Processing specific flights: %v", flightIDs)
				result := pipeline.ProcessBatch(flightIDs)
				if !result.Success {
					return fmt.Errorf("anomaly detection failed: %v", result.Errors)
				}
				processed, detected = result.ProcessedFlights, result.AnomaliesDetected
			} else {
				result := pipeline.RunFull(false)
				if !result.Success {
					return fmt.Errorf("anomaly detection failed: %s", result.Error)
				}
				processed, detected = result.FlightsProcessed, result.AnomaliesDetected
			}

			fmt.Printf("Anomaly detection completed\n")
			fmt.Printf("  Points processed:   %d\n", processed)
			fmt.Printf("  Anomalies detected: %d\n", detected)

			if minConfidence == 0 {
				minConfidence = cfg.MinConfidence
			}
			top, err := anomalies.TopByConfidence(minConfidence, 10)
			if err != nil {
				return err
			}
			if len(top) > 0 {
				fmt.Printf("Top anomalies (confidence >= %.2f):\n", minConfidence)
				for _, a := range top {
					fmt.Printf("  %s (%s): %.3f confidence\n", a.FlightID, a.AnomalyType, a.ConfidenceScore)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model-path", "", "path to a saved model file")
	cmd.Flags().StringSliceVar(&flightIDs, "flight-ids", nil, "specific flight IDs to process")
	cmd.Flags().BoolVar(&clearExisting, "clear-existing", false, "clear existing anomaly records before processing")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "minimum confidence threshold for reporting anomalies")

	return cmd
}
