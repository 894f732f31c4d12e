package services

import (
	"strings"

	"github.com/onestep-solution/field-service-api/models"
	"gorm.io/gorm"
)

// Technician employment status derived during matching.
const (
	EmployeeAvailable = "available"
	EmployeeInWork    = "in work"
)

// TechnicianCandidate is one match result with its derived busy status.
type TechnicianCandidate struct {
	models.User
	EmployeeStatus string `json:"employee_status"`
}

// FindCandidates is a pure, stateless query: technicians whose tag set
// intersects the requested specializations (case-insensitive) and whose
// location contains the normalized location substring. No distance scoring.
func FindCandidates(db *gorm.DB, specializations []string, location string) ([]TechnicianCandidate, error) {
	specs := models.NormalizeTags(specializations)
	normalizedLocation := strings.ToLower(strings.TrimSpace(location))

	query := db.Where("role = ?", "technician").
		Where("location LIKE ?", "%"+normalizedLocation+"%")

	if len(specs) > 0 {
		tagQuery := db.Where("specialization LIKE ?", "%"+specs[0]+"%")
		for _, s := range specs[1:] {
			tagQuery = tagQuery.Or("specialization LIKE ?", "%"+s+"%")
		}
		query = query.Where(tagQuery)
	}

	var technicians []models.User
	if err := query.Find(&technicians).Error; err != nil {
		return nil, err
	}

	candidates := make([]TechnicianCandidate, 0, len(technicians))
	for _, tech := range technicians {
		// LIKE on the comma-joined column can over-match on substrings;
		// confirm a real tag intersection before accepting the candidate.
		if len(specs) > 0 && !tagsIntersect(tech.Specializations(), specs) {
			continue
		}

		status := EmployeeAvailable
		var count int64
		if err := db.Model(&models.Work{}).
			Where("technician_id = ? AND status IN ?", tech.ID, models.ActiveAssignmentStatuses).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			status = EmployeeInWork
		}

		candidates = append(candidates, TechnicianCandidate{User: tech, EmployeeStatus: status})
	}

	return candidates, nil
}

func tagsIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// HasActiveAssignment reports whether the technician is currently engaged on
// any work in an active state, used for booking-conflict checks.
func HasActiveAssignment(db *gorm.DB, technicianID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Work{}).
		Where("technician_id = ? AND status IN ?", technicianID, models.ActiveAssignmentStatuses).
		Count(&count).Error
	return count > 0, err
}
