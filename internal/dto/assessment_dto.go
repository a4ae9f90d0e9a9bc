package dto

type CreateAssessmentRequest struct {
	CourseId      string `json:"course_id" validate:"required,uuid4"`
	ParticipantId string `json:"participant_id" validate:"required,uuid4"`
}

type SaveScoreRequest struct {
	OutcomeId string                 `json:"outcome_id" validate:"required,uuid4"`
	Value     int                    `json:"value" validate:"min=0,max=100"`
	Feedback  map[string]interface{} `json:"feedback"`
}

type SaveOverallRequest struct {
	Summary string `json:"summary"`
	Rating  int    `json:"rating" validate:"min=0,max=5"`
}

type AssessmentResponse struct {
	Id            string          `json:"id"`
	CourseId      string          `json:"course_id"`
	ParticipantId string          `json:"participant_id"`
	AssessorId    string          `json:"assessor_id"`
	Status        string          `json:"status"`
	Scores        []ScoreResponse `json:"scores,omitempty"`
}

type ScoreResponse struct {
	Id        string                 `json:"id"`
	OutcomeId string                 `json:"outcome_id"`
	Value     int                    `json:"value"`
	Feedback  map[string]interface{} `json:"feedback,omitempty"`
}
