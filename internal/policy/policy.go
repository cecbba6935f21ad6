package policy

import (
	"errors"
	"fmt"

	"workorder-service/internal/model"
)

var ErrDenied = errors.New("operation not permitted for role")

type Operation string

const (
	OpCreateWorkOrder       Operation = "workorder.create"
	OpUpdateWorkOrder       Operation = "workorder.update"
	OpUpdateWorkOrderStatus Operation = "workorder.update_status"
	OpDeleteWorkOrder       Operation = "workorder.delete"
	OpViewWorkOrders        Operation = "workorder.view"
	OpViewWorkOrderReport   Operation = "workorder.report"
	OpListRejected          Operation = "workorder.list_rejected"
	OpListPendingApproval   Operation = "workorder.list_pending_approval"

	OpWorkTasks      Operation = "task.work"
	OpManageTasks    Operation = "task.manage"
	OpReviewTasks    Operation = "task.review"
	OpAddEvidence    Operation = "evidence.add"
	OpReviewEvidence Operation = "evidence.review"

	OpManageTemplates Operation = "template.manage"
	OpViewTemplates   Operation = "template.view"

	OpManageClients Operation = "client.manage"
	OpViewClients   Operation = "client.view"

	OpManageUsers Operation = "user.manage"
	OpViewUsers   Operation = "user.view"

	OpViewAuditLog Operation = "audit.view"
)

var (
	administrator = model.RoleAdministrator
	supervisor    = model.RoleSupervisor
	technician    = model.RoleTechnician
)

func roles(rs ...model.Role) map[model.Role]bool {
	out := make(map[model.Role]bool, len(rs))
	for _, r := range rs {
		out[r] = true
	}
	return out
}

// matrix is the single source of truth for which role may invoke which operation.
// Row-level scoping (own orders, assigned orders) is applied by the caller.
var matrix = map[Operation]map[model.Role]bool{
	OpCreateWorkOrder:       roles(supervisor),
	OpUpdateWorkOrder:       roles(supervisor),
	OpUpdateWorkOrderStatus: roles(supervisor, technician),
	OpDeleteWorkOrder:       roles(supervisor),
	OpViewWorkOrders:        roles(supervisor, technician),
	OpViewWorkOrderReport:   roles(supervisor, technician),
	OpListRejected:          roles(technician),
	OpListPendingApproval:   roles(supervisor),

	OpWorkTasks:      roles(technician),
	OpManageTasks:    roles(supervisor),
	OpReviewTasks:    roles(supervisor),
	OpAddEvidence:    roles(technician),
	OpReviewEvidence: roles(supervisor),

	OpManageTemplates: roles(administrator),
	OpViewTemplates:   roles(administrator, supervisor, technician),

	OpManageClients: roles(administrator, supervisor),
	OpViewClients:   roles(administrator, supervisor),

	OpManageUsers: roles(administrator),
	OpViewUsers:   roles(administrator, supervisor),

	OpViewAuditLog: roles(administrator),
}

// Authorize returns ErrDenied unless role may perform op.
func Authorize(role model.Role, op Operation) error {
	if matrix[op][role] {
		return nil
	}
	return fmt.Errorf("%s may not perform %s: %w", roleName(role), op, ErrDenied)
}

func roleName(role model.Role) string {
	if role == "" {
		return "anonymous"
	}
	return string(role)
}
