package service

import (
	"context"
	"strings"
	"time"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/export"
)

type exportColumn struct {
	header string
	value  func(u *models.User, permissions []string) string
}

var (
	basicColumns = []exportColumn{
		{"ID", func(u *models.User, _ []string) string { return u.ID }},
		{"First Name", func(u *models.User, _ []string) string { return u.FirstName }},
		{"Last Name", func(u *models.User, _ []string) string { return u.LastName }},
		{"Email", func(u *models.User, _ []string) string { return u.Email }},
	}
	contactColumns = []exportColumn{
		{"Phone", func(u *models.User, _ []string) string { return deref(u.Phone) }},
		{"Cities", func(u *models.User, _ []string) string { return strings.Join(u.Cities, ", ") }},
		{"Localities", func(u *models.User, _ []string) string { return strings.Join(u.Localities, ", ") }},
	}
	roleColumns = []exportColumn{
		{"Role", func(u *models.User, _ []string) string { return u.RoleName }},
		{"Manager ID", func(u *models.User, _ []string) string { return deref(u.ManagerID) }},
	}
	statusColumns = []exportColumn{
		{"Status", func(u *models.User, _ []string) string { return string(u.Status) }},
	}
	dateColumns = []exportColumn{
		{"Created At", func(u *models.User, _ []string) string { return formatExportTime(&u.CreatedAt) }},
		{"Updated At", func(u *models.User, _ []string) string { return formatExportTime(&u.UpdatedAt) }},
		{"Last Login", func(u *models.User, _ []string) string { return formatExportTime(u.LastLogin) }},
	}
	permissionColumns = []exportColumn{
		{"Permissions", func(_ *models.User, perms []string) string { return strings.Join(perms, "; ") }},
	}
)

func selectColumns(fields models.ExportFields) []exportColumn {
	var cols []exportColumn
	if fields.Basic {
		cols = append(cols, basicColumns...)
	}
	if fields.Contact {
		cols = append(cols, contactColumns...)
	}
	if fields.Role {
		cols = append(cols, roleColumns...)
	}
	if fields.Status {
		cols = append(cols, statusColumns...)
	}
	if fields.Dates {
		cols = append(cols, dateColumns...)
	}
	if fields.Permissions {
		cols = append(cols, permissionColumns...)
	}
	return cols
}

// buildUserDataset projects users onto the selected column groups. Field groups never filter rows.
func (s *ExportService) buildUserDataset(ctx context.Context, users []models.User, fields models.ExportFields) (export.Dataset, error) {
	if !fields.Any() {
		fields.Basic = true
	}
	cols := selectColumns(fields)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.header
	}

	permsByRole := make(map[string][]string)
	if fields.Permissions {
		for _, u := range users {
			if _, ok := permsByRole[u.RoleID]; ok {
				continue
			}
			role, err := s.roles.FindByID(ctx, u.RoleID)
			if err != nil {
				return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role permissions")
			}
			permsByRole[u.RoleID] = role.PermissionNames()
		}
	}

	rows := make([][]string, 0, len(users))
	for i := range users {
		u := &users[i]
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.value(u, permsByRole[u.RoleID])
		}
		rows = append(rows, row)
	}
	return export.Dataset{Title: "Users Export", Headers: headers, Rows: rows}, nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatExportTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
