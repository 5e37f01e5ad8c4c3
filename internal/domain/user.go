package domain

// UserRole é um tipo string para representar o papel do usuário autenticado.
// Os papéis vêm das claims do JWT emitido pelo serviço de identidade externo.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
	RoleViewer   UserRole = "viewer"
)
