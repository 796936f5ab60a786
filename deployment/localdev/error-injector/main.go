package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/miradorstack/mirador-resolver/internal/api"
	"github.com/miradorstack/mirador-resolver/internal/models"
)

type scenario struct {
	message string
	query   string
}

// Failures a local MySQL produces for deliberately broken statements.
var scenarios = []scenario{
	{message: `(1146, "Table 'demo.totally_missing_table_xyz123' doesn't exist")`, query: "SELECT * FROM totally_missing_table_xyz123"},
	{message: `(1064, "You have an error in your SQL syntax; check the manual near 'WHERE INVALID SYNTAX'")`, query: "SELECT * FROM WHERE INVALID SYNTAX"},
	{message: `(1054, "Unknown column 'non_existent_column_abc' in 'field list'")`, query: "SELECT non_existent_column_abc FROM users"},
	{message: `(1305, "FUNCTION demo.INVALID_FUNCTION does not exist")`, query: "SELECT INVALID_FUNCTION(id) FROM users"},
	{message: `(1044, "Access denied for user 'demo'@'%' to database 'mysql'")`, query: "DROP DATABASE mysql"},
	{message: `(1040, "Too many connections")`},
	{message: `(1213, "Deadlock found when trying to get lock; try restarting transaction")`, query: "UPDATE accounts SET balance = balance - 10 WHERE id = 7"},
}

func main() {
	target := flag.String("target", "127.0.0.1:50051", "Resolver gRPC address")
	rounds := flag.Int("rounds", 1, "Times to replay the scenario set")
	interval := flag.Duration("interval", 200*time.Millisecond, "Delay between injected errors")
	maintenance := flag.Bool("maintenance", false, "Flag injected errors as occurring in a maintenance window")
	flag.Parse()

	client, err := api.Dial(*target)
	if err != nil {
		log.Fatalf("dial resolver: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var firstID string
	for round := 0; round < *rounds; round++ {
		for _, sc := range scenarios {
			classified, err := client.Classify(ctx, sc.message, sc.query)
			if err != nil {
				log.Fatalf("classify: %v", err)
			}
			rec := models.ErrorRecord{
				Type:    models.ErrorType(classified.GetFields()[api.FieldErrorType].GetStringValue()),
				Code:    classified.GetFields()[api.FieldErrorCode].GetStringValue(),
				Message: sc.message,
				Query:   sc.query,
				Table:   classified.GetFields()[api.FieldTable].GetStringValue(),
			}
			if *maintenance {
				rec.Context = map[string]string{models.ContextMaintenanceWindow: "true"}
			}

			resp, err := client.ReportError(ctx, rec)
			if err != nil {
				log.Fatalf("report error: %v", err)
			}
			plan := resp.GetFields()["plan"].GetStructValue().GetFields()
			id := plan[api.FieldResolutionID].GetStringValue()
			if firstID == "" {
				firstID = id
			}
			log.Printf("%-22s strategy=%-18s success=%-5v frequency=%v alerts=%d",
				rec.Type,
				plan["strategy"].GetStringValue(),
				plan["success"].GetBoolValue(),
				resp.GetFields()["frequency"].GetNumberValue(),
				len(resp.GetFields()["alerts"].GetListValue().GetValues()),
			)
			time.Sleep(*interval)
		}
	}

	if firstID != "" {
		if _, err := client.SubmitFeedback(ctx, models.Feedback{ResolutionID: firstID, Text: "verified by injector", EffectivenessScore: 0.9}); err != nil {
			log.Printf("submit feedback: %v", err)
		}
	}

	health, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("health: %v", err)
	}
	log.Printf("health status=%s recommendations=%v",
		health.GetFields()["status"].GetStringValue(),
		health.GetFields()["recommendations"].GetListValue().AsSlice(),
	)
}
