package controller

import (
	"errors"

	"assessment-sync-be/internal/dto"
	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/pkg/serverutils"
	"assessment-sync-be/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAssessmentController interface {
	RegisterRoutes(router fiber.Router)
}

// AssessmentController is the HTTP write surface the client queue replays
// against. Score and overall saves are PUTs onto natural keys, so a
// replayed request is harmless.
type AssessmentController struct {
	service  service.IAssessmentService
	validate *validator.Validate
}

func NewAssessmentController(svc service.IAssessmentService) IAssessmentController {
	return &AssessmentController{
		service:  svc,
		validate: validator.New(),
	}
}

func (c *AssessmentController) RegisterRoutes(router fiber.Router) {
	assessments := router.Group("/assessments")
	assessments.Use(serverutils.JwtMiddleware)
	assessments.Post("/", c.CreateAssessment)
	assessments.Get("/:id", c.GetAssessment)
	assessments.Put("/:id/scores", c.SaveScore)
	assessments.Put("/:id/overall", c.SaveOverall)

	participants := router.Group("/participants")
	participants.Use(serverutils.JwtMiddleware)
	participants.Get("/:id/assessments", c.ListByParticipant)
}

func (c *AssessmentController) CreateAssessment(ctx *fiber.Ctx) error {
	var req dto.CreateAssessmentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	assessorId, err := currentUserId(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	courseId, _ := uuid.Parse(req.CourseId)
	participantId, _ := uuid.Parse(req.ParticipantId)

	assessment, err := c.service.CreateAssessment(ctx.UserContext(), courseId, participantId, assessorId)
	if err != nil {
		if errors.Is(err, service.ErrParticipantNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Participant not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toAssessmentResponse(assessment, nil)})
}

func (c *AssessmentController) GetAssessment(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}

	assessment, scores, err := c.service.GetAssessment(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrAssessmentNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": toAssessmentResponse(assessment, scores)})
}

func (c *AssessmentController) SaveScore(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}

	var req dto.SaveScoreRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	outcomeId, _ := uuid.Parse(req.OutcomeId)

	score, err := c.service.SaveScore(ctx.UserContext(), id, outcomeId, req.Value, req.Feedback)
	if err != nil {
		if errors.Is(err, service.ErrAssessmentNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": toScoreResponse(score)})
}

func (c *AssessmentController) SaveOverall(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}

	var req dto.SaveOverallRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := c.validate.Struct(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	feedback, err := c.service.SaveOverall(ctx.UserContext(), id, req.Summary, req.Rating)
	if err != nil {
		if errors.Is(err, service.ErrAssessmentNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": feedback})
}

func (c *AssessmentController) ListByParticipant(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}

	assessments, err := c.service.ListByParticipant(ctx.UserContext(), id)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	out := make([]dto.AssessmentResponse, 0, len(assessments))
	for _, a := range assessments {
		out = append(out, toAssessmentResponse(a, nil))
	}
	return ctx.JSON(fiber.Map{"data": out})
}

func currentUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, errors.New("missing user id")
	}
	return uuid.Parse(userIDStr)
}

func toAssessmentResponse(a *entity.Assessment, scores []*entity.Score) dto.AssessmentResponse {
	resp := dto.AssessmentResponse{
		Id:            a.Id.String(),
		CourseId:      a.CourseId.String(),
		ParticipantId: a.ParticipantId.String(),
		AssessorId:    a.AssessorId.String(),
		Status:        a.Status,
	}
	for _, s := range scores {
		resp.Scores = append(resp.Scores, toScoreResponse(s))
	}
	return resp
}

func toScoreResponse(s *entity.Score) dto.ScoreResponse {
	return dto.ScoreResponse{
		Id:        s.Id.String(),
		OutcomeId: s.OutcomeId.String(),
		Value:     s.Value,
		Feedback:  s.Feedback,
	}
}
