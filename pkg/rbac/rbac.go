package rbac

import "strings"

// 权限常量
const (
	PermissionSyncSessions  = "sessions:sync"
	PermissionDrainQueue    = "email_queue:drain"
	PermissionReplayQueue   = "email_queue:replay"
	PermissionJoinSession   = "sessions:join"
	PermissionManageAccount = "users:manage_self"
)

// 角色常量
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionJoinSession,
		PermissionManageAccount,
	},
	RoleAdmin: {
		PermissionJoinSession,
		PermissionManageAccount,
		PermissionSyncSessions,
		PermissionDrainQueue,
		PermissionReplayQueue,
	},
}

// Policy resolves roles from a configured list of admin emails.
type Policy struct {
	admins map[string]struct{}
}

func NewPolicy(adminEmails []string) *Policy {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &Policy{admins: admins}
}

// RoleOf 获取用户角色
func (p *Policy) RoleOf(email string) string {
	if _, ok := p.admins[strings.ToLower(email)]; ok {
		return RoleAdmin
	}
	return RoleUser
}

// HasPermission 检查用户是否有指定权限
func (p *Policy) HasPermission(email string, permission string) bool {
	for _, granted := range rolePermissions[p.RoleOf(email)] {
		if granted == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查用户是否有指定权限（返回错误而不是布尔值，便于处理）
func (p *Policy) CheckPermission(email string, permission string) error {
	if !p.HasPermission(email, permission) {
		return &PermissionDeniedError{
			Email:      email,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Email      string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions: " + e.Permission
}
