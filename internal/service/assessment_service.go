package service

import (
	"context"
	"errors"
	"time"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/repository/contract"
	"assessment-sync-be/internal/repository/specification"

	"github.com/google/uuid"
)

var (
	ErrAssessmentNotFound  = errors.New("assessment not found")
	ErrParticipantNotFound = errors.New("participant not found")
)

type IAssessmentService interface {
	CreateAssessment(ctx context.Context, courseId, participantId, assessorId uuid.UUID) (*entity.Assessment, error)
	SaveScore(ctx context.Context, assessmentId, outcomeId uuid.UUID, value int, feedback map[string]interface{}) (*entity.Score, error)
	SaveOverall(ctx context.Context, assessmentId uuid.UUID, summary string, rating int) (*entity.OverallFeedback, error)
	GetAssessment(ctx context.Context, id uuid.UUID) (*entity.Assessment, []*entity.Score, error)
	ListByParticipant(ctx context.Context, participantId uuid.UUID) ([]*entity.Assessment, error)
}

// AssessmentService is the storage contract behind both the ordinary CRUD
// routes and the client queue's replay. The write paths for score and
// overall are idempotent upserts, which is what makes a replayed or
// duplicated flush converge instead of duplicating rows.
type AssessmentService struct {
	assessments  contract.AssessmentRepository
	scores       contract.ScoreRepository
	overall      contract.OverallFeedbackRepository
	participants contract.ParticipantRepository
}

func NewAssessmentService(
	assessments contract.AssessmentRepository,
	scores contract.ScoreRepository,
	overall contract.OverallFeedbackRepository,
	participants contract.ParticipantRepository,
) IAssessmentService {
	return &AssessmentService{
		assessments:  assessments,
		scores:       scores,
		overall:      overall,
		participants: participants,
	}
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, courseId, participantId, assessorId uuid.UUID) (*entity.Assessment, error) {
	participant, err := s.participants.FindOne(ctx, specification.ByID{ID: participantId})
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrParticipantNotFound
	}

	assessment := &entity.Assessment{
		Id:            uuid.New(),
		CourseId:      courseId,
		ParticipantId: participantId,
		AssessorId:    assessorId,
		Status:        "draft",
		CreatedAt:     time.Now(),
	}
	if err := s.assessments.Create(ctx, assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *AssessmentService) SaveScore(ctx context.Context, assessmentId, outcomeId uuid.UUID, value int, feedback map[string]interface{}) (*entity.Score, error) {
	assessment, err := s.assessments.FindOne(ctx, specification.ByID{ID: assessmentId})
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, ErrAssessmentNotFound
	}

	score := &entity.Score{
		AssessmentId: assessmentId,
		OutcomeId:    outcomeId,
		Value:        value,
		Feedback:     feedback,
	}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, err
	}
	return score, nil
}

func (s *AssessmentService) SaveOverall(ctx context.Context, assessmentId uuid.UUID, summary string, rating int) (*entity.OverallFeedback, error) {
	assessment, err := s.assessments.FindOne(ctx, specification.ByID{ID: assessmentId})
	if err != nil {
		return nil, err
	}
	if assessment == nil {
		return nil, ErrAssessmentNotFound
	}

	feedback := &entity.OverallFeedback{
		AssessmentId: assessmentId,
		Summary:      summary,
		Rating:       rating,
	}
	if err := s.overall.Upsert(ctx, feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (s *AssessmentService) GetAssessment(ctx context.Context, id uuid.UUID) (*entity.Assessment, []*entity.Score, error) {
	assessment, err := s.assessments.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, nil, err
	}
	if assessment == nil {
		return nil, nil, ErrAssessmentNotFound
	}

	scores, err := s.scores.FindAll(ctx, specification.ByAssessmentID{AssessmentID: id})
	if err != nil {
		return nil, nil, err
	}
	return assessment, scores, nil
}

func (s *AssessmentService) ListByParticipant(ctx context.Context, participantId uuid.UUID) ([]*entity.Assessment, error) {
	return s.assessments.FindAll(ctx,
		specification.ByParticipantID{ParticipantID: participantId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}
