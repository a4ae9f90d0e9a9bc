package main

import (
	"fmt"
	"log"
	"os"

	"assessment-sync-be/internal/model"
	"assessment-sync-be/pkg/database"

	"github.com/joho/godotenv"
)

// watchedTables are the tables whose committed mutations feed the realtime
// layer. Each gets the same row-level trigger.
var watchedTables = []string{"participants", "assessments", "scores", "overall_feedbacks"}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}
	channel := os.Getenv("DB_CHANGE_CHANNEL")
	if channel == "" {
		channel = "assessment_changes"
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Fatal("Error: extension setup failed:", err)
	}

	log.Println("Step 2: Migrating schema...")
	if err := db.AutoMigrate(
		&model.Participant{},
		&model.Assessment{},
		&model.OverallFeedback{},
		&model.Score{},
	); err != nil {
		log.Fatal("Error: AutoMigrate failed:", err)
	}

	log.Println("Step 3: Installing change notification triggers...")

	// The trigger serializes the whole row; the notifier parses exactly this
	// shape. DELETE carries only old_record, INSERT only record. Score and
	// overall rows only reference their assessment, so the course and
	// participant context the fan-out filters on is joined in here — without
	// it those events could not be routed to the right scope.
	notifyFn := fmt.Sprintf(`
CREATE OR REPLACE FUNCTION notify_assessment_change() RETURNS trigger AS $$
DECLARE
	rec jsonb;
	old_rec jsonb;
	ctx jsonb;
BEGIN
	rec = CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE to_jsonb(NEW) END;
	old_rec = CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE to_jsonb(OLD) END;

	IF TG_TABLE_NAME IN ('scores', 'overall_feedbacks') THEN
		SELECT jsonb_build_object('course_id', a.course_id, 'participant_id', a.participant_id)
		INTO ctx
		FROM assessments a
		WHERE a.id = (COALESCE(rec, old_rec)->>'assessment_id')::uuid;
		IF ctx IS NOT NULL THEN
			rec = CASE WHEN rec IS NULL THEN NULL ELSE rec || ctx END;
			old_rec = CASE WHEN old_rec IS NULL THEN NULL ELSE old_rec || ctx END;
		END IF;
	END IF;

	PERFORM pg_notify('%s', jsonb_build_object(
		'table', TG_TABLE_NAME,
		'type', TG_OP,
		'record', rec,
		'old_record', old_rec,
		'occurred_at', now()
	)::text);
	RETURN COALESCE(NEW, OLD);
END;
$$ LANGUAGE plpgsql;`, channel)

	if err := db.Exec(notifyFn).Error; err != nil {
		log.Fatal("Error: notify function failed:", err)
	}

	for _, table := range watchedTables {
		stmt := fmt.Sprintf(`
DROP TRIGGER IF EXISTS %[1]s_notify_change ON %[1]s;
CREATE TRIGGER %[1]s_notify_change
AFTER INSERT OR UPDATE OR DELETE ON %[1]s
FOR EACH ROW EXECUTE FUNCTION notify_assessment_change();`, table)
		if err := db.Exec(stmt).Error; err != nil {
			log.Fatalf("Error: trigger on %s failed: %v", table, err)
		}
	}

	log.Println("Migration complete.")
}
