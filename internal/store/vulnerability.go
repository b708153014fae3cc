package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/geo"
	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
)

const assessmentColumns = `id, community_name, location, latitude, longitude, population, flood_risk,
	drought_risk, extreme_weather_risk, food_access_score, nutrition_diversity_score, food_affordability_score,
	poverty_rate, unemployment_rate, education_level, healthcare_access, road_access_quality,
	water_infrastructure, communication_coverage, overall_vulnerability, climate_resilience_score,
	food_security_score, assessment_date, assessor_id, methodology, notes`

func scanAssessment(row scanner) (*models.VulnerabilityAssessment, error) {
	v := &models.VulnerabilityAssessment{}
	var assessor sql.NullInt64
	err := row.Scan(&v.ID, &v.CommunityName, &v.Location, &v.Latitude, &v.Longitude, &v.Population,
		&v.FloodRisk, &v.DroughtRisk, &v.ExtremeWeatherRisk, &v.FoodAccessScore, &v.NutritionDiversityScore,
		&v.FoodAffordabilityScore, &v.PovertyRate, &v.UnemploymentRate, &v.EducationLevel, &v.HealthcareAccess,
		&v.RoadAccessQuality, &v.WaterInfrastructure, &v.CommunicationCoverage, &v.OverallVulnerability,
		&v.ClimateResilienceScore, &v.FoodSecurityScore, scanTime(&v.AssessmentDate), &assessor,
		&v.Methodology, &v.Notes)
	if err != nil {
		return nil, err
	}
	v.AssessorID = assessor.Int64
	return v, nil
}

func (s *Store) CreateAssessment(ctx context.Context, v *models.VulnerabilityAssessment) error {
	v.AssessmentDate = s.clock.Now().UTC()

	query := `INSERT INTO vulnerability_assessments (community_name, location, latitude, longitude, population,
		flood_risk, drought_risk, extreme_weather_risk, food_access_score, nutrition_diversity_score,
		food_affordability_score, poverty_rate, unemployment_rate, education_level, healthcare_access,
		road_access_quality, water_infrastructure, communication_coverage, overall_vulnerability,
		climate_resilience_score, food_security_score, assessment_date, assessor_id, methodology, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, v.CommunityName, v.Location, v.Latitude, v.Longitude, v.Population,
		v.FloodRisk, v.DroughtRisk, v.ExtremeWeatherRisk, v.FoodAccessScore, v.NutritionDiversityScore,
		v.FoodAffordabilityScore, v.PovertyRate, v.UnemploymentRate, v.EducationLevel, v.HealthcareAccess,
		v.RoadAccessQuality, v.WaterInfrastructure, v.CommunicationCoverage, v.OverallVulnerability,
		v.ClimateResilienceScore, v.FoodSecurityScore, formatTime(v.AssessmentDate), v.AssessorID,
		v.Methodology, v.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert vulnerability assessment: %w", err)
	}
	v.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetAssessment(ctx context.Context, id int64) (*models.VulnerabilityAssessment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+assessmentColumns+" FROM vulnerability_assessments WHERE id = ?", id)
	v, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

type AssessmentFilter struct {
	Location string
	Levels   []models.VulnerabilityLevel
	Box      *geo.Box
	Page     Page
}

func (s *Store) ListAssessments(ctx context.Context, f AssessmentFilter) ([]*models.VulnerabilityAssessment, error) {
	var c conds
	if f.Location != "" {
		c.add("location LIKE ?", like(f.Location))
	}
	if len(f.Levels) > 0 {
		c.add("overall_vulnerability IN ("+placeholders(len(f.Levels))+")", toArgs(f.Levels)...)
	}
	applyBox(&c, f.Box)

	query := "SELECT " + assessmentColumns + " FROM vulnerability_assessments" + c.where() +
		" ORDER BY assessment_date DESC, id DESC" + f.Page.clause(&c)
	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vulnerability assessments: %w", err)
	}
	defer rows.Close()

	var out []*models.VulnerabilityAssessment
	for rows.Next() {
		v, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) CountAssessments(ctx context.Context, levels ...models.VulnerabilityLevel) (int, error) {
	if len(levels) == 0 {
		return s.count(ctx, "SELECT COUNT(*) FROM vulnerability_assessments")
	}
	return s.count(ctx, "SELECT COUNT(*) FROM vulnerability_assessments WHERE overall_vulnerability IN ("+
		placeholders(len(levels))+")", toArgs(levels)...)
}
