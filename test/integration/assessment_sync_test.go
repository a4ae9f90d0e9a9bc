package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"assessment-sync-be/internal/model"
	"assessment-sync-be/internal/repository/implementation"
	"assessment-sync-be/internal/repository/specification"
	"assessment-sync-be/internal/service"
	"assessment-sync-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreUpsertConvergence(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	require.NoError(t, gormDB.AutoMigrate(
		&model.Participant{},
		&model.Assessment{},
		&model.OverallFeedback{},
		&model.Score{},
	))

	ctx := context.Background()
	assessments := implementation.NewAssessmentRepository(gormDB)
	scores := implementation.NewScoreRepository(gormDB)
	overall := implementation.NewOverallFeedbackRepository(gormDB)
	participants := implementation.NewParticipantRepository(gormDB)
	svc := service.NewAssessmentService(assessments, scores, overall, participants)

	courseId := uuid.New()
	participantId := uuid.New()
	assessorId := uuid.New()
	outcomeId := uuid.New()

	require.NoError(t, gormDB.Create(&model.Participant{
		Id:       participantId,
		CourseId: courseId,
		FullName: "Integration Participant",
	}).Error)

	assessment, err := svc.CreateAssessment(ctx, courseId, participantId, assessorId)
	require.NoError(t, err)

	t.Run("Repeated score save converges to one row", func(t *testing.T) {
		_, err := svc.SaveScore(ctx, assessment.Id, outcomeId, 70, nil)
		require.NoError(t, err)
		_, err = svc.SaveScore(ctx, assessment.Id, outcomeId, 85, map[string]interface{}{"note": "improved"})
		require.NoError(t, err)

		count, err := scores.Count(ctx, specification.ByAssessmentID{AssessmentID: assessment.Id})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "the (assessment, outcome) key absorbs the duplicate")

		rows, err := scores.FindAll(ctx, specification.ByAssessmentID{AssessmentID: assessment.Id})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 85, rows[0].Value, "last write wins")
	})

	t.Run("Repeated overall save converges to one row", func(t *testing.T) {
		_, err := svc.SaveOverall(ctx, assessment.Id, "first pass", 3)
		require.NoError(t, err)
		_, err = svc.SaveOverall(ctx, assessment.Id, "second pass", 4)
		require.NoError(t, err)

		fb, err := overall.FindByAssessmentId(ctx, assessment.Id)
		require.NoError(t, err)
		require.NotNil(t, fb)
		assert.Equal(t, "second pass", fb.Summary)
		assert.Equal(t, 4, fb.Rating)
	})

	t.Run("Score against missing assessment is refused", func(t *testing.T) {
		_, err := svc.SaveScore(ctx, uuid.New(), outcomeId, 10, nil)
		assert.ErrorIs(t, err, service.ErrAssessmentNotFound)
	})
}
