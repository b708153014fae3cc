package api

import (
	"net/http"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/analytics"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/store"
)

const dataAssessments = "vulnerability_assessments"

const levelTag = "omitempty,oneof=low medium high very_high"

type assessmentRequest struct {
	CommunityName           string                    `json:"community_name" validate:"required"`
	Location                string                    `json:"location" validate:"required"`
	Latitude                *float64                  `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude               *float64                  `json:"longitude" validate:"required,gte=-180,lte=180"`
	Population              *int64                    `json:"population" validate:"omitempty,gte=0"`
	FloodRisk               models.VulnerabilityLevel `json:"flood_risk" validate:"omitempty,oneof=low medium high very_high"`
	DroughtRisk             models.VulnerabilityLevel `json:"drought_risk" validate:"omitempty,oneof=low medium high very_high"`
	ExtremeWeatherRisk      models.VulnerabilityLevel `json:"extreme_weather_risk" validate:"omitempty,oneof=low medium high very_high"`
	FoodAccessScore         *float64                  `json:"food_access_score" validate:"omitempty,gte=0,lte=10"`
	NutritionDiversityScore *float64                  `json:"nutrition_diversity_score" validate:"omitempty,gte=0,lte=10"`
	FoodAffordabilityScore  *float64                  `json:"food_affordability_score" validate:"omitempty,gte=0,lte=10"`
	PovertyRate             *float64                  `json:"poverty_rate" validate:"omitempty,gte=0,lte=100"`
	UnemploymentRate        *float64                  `json:"unemployment_rate" validate:"omitempty,gte=0,lte=100"`
	EducationLevel          *float64                  `json:"education_level" validate:"omitempty,gte=0,lte=10"`
	HealthcareAccess        *float64                  `json:"healthcare_access" validate:"omitempty,gte=0,lte=10"`
	RoadAccessQuality       *float64                  `json:"road_access_quality" validate:"omitempty,gte=0,lte=10"`
	WaterInfrastructure     *float64                  `json:"water_infrastructure" validate:"omitempty,gte=0,lte=10"`
	CommunicationCoverage   *float64                  `json:"communication_coverage" validate:"omitempty,gte=0,lte=10"`
	Methodology             *string                   `json:"methodology"`
	Notes                   *string                   `json:"notes"`
}

func orLow(v models.VulnerabilityLevel) models.VulnerabilityLevel {
	if v == "" {
		return models.VulnerabilityLow
	}
	return v
}

func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	a := &models.VulnerabilityAssessment{
		CommunityName:           req.CommunityName,
		Location:                req.Location,
		Latitude:                *req.Latitude,
		Longitude:               *req.Longitude,
		Population:              req.Population,
		FloodRisk:               orLow(req.FloodRisk),
		DroughtRisk:             orLow(req.DroughtRisk),
		ExtremeWeatherRisk:      orLow(req.ExtremeWeatherRisk),
		FoodAccessScore:         req.FoodAccessScore,
		NutritionDiversityScore: req.NutritionDiversityScore,
		FoodAffordabilityScore:  req.FoodAffordabilityScore,
		PovertyRate:             req.PovertyRate,
		UnemploymentRate:        req.UnemploymentRate,
		EducationLevel:          req.EducationLevel,
		HealthcareAccess:        req.HealthcareAccess,
		RoadAccessQuality:       req.RoadAccessQuality,
		WaterInfrastructure:     req.WaterInfrastructure,
		CommunicationCoverage:   req.CommunicationCoverage,
		AssessorID:              currentUser(r).ID,
		Methodology:             req.Methodology,
		Notes:                   req.Notes,
	}
	analytics.Score(a)

	if err := s.store.CreateAssessment(r.Context(), a); err != nil {
		serverError(w, r, err)
		return
	}
	s.publishChange(dataAssessments, a.ID, models.ChangeCreate, "Community assessed: "+a.CommunityName)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := store.AssessmentFilter{Location: q.String("location"), Page: q.Page()}
	level := models.VulnerabilityLevel(q.String("vulnerability_level"))
	if err := s.validate.Var(level, levelTag); err != nil {
		q.fail("vulnerability_level", "must be one of: low medium high very_high")
	}
	if !q.ok(w) {
		return
	}
	if level != "" {
		f.Levels = []models.VulnerabilityLevel{level}
	}

	list, err := s.store.ListAssessments(r.Context(), f)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assessmentID")
	if !ok {
		return
	}
	a, err := s.store.GetAssessment(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Vulnerability assessment not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleHighRisk(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	page := q.Page()
	if !q.ok(w) {
		return
	}
	list, err := s.store.ListAssessments(r.Context(), store.AssessmentFilter{
		Levels: []models.VulnerabilityLevel{models.VulnerabilityHigh, models.VulnerabilityVeryHigh},
		Page:   page,
	})
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}
