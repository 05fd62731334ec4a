package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
)

// CanAccess reports whether an actor may act on a record owned by ownerID. Admins always
// may; teachers only on records they own.
func CanAccess(role models.UserRole, actorID, ownerID string) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return ownerID != "" && actorID == ownerID
	default:
		return false
	}
}

// authorizeStudent lets admins and the owner of the student's section through.
func authorizeStudent(ctx context.Context, sections sectionReader, actor models.Principal, student *models.Student) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	section, err := sections.FindByID(ctx, student.SectionID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if !CanAccess(actor.Role, actor.ID, section.OwnerID()) {
		return appErrors.Clone(appErrors.ErrForbidden, "student belongs to another teacher's section")
	}
	return nil
}
