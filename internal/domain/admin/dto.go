// internal/domain/admin/dto.go
package admin

// CreateAdminRequest seeds an operator account
type CreateAdminRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"max=120"`
	Role        string `json:"role" binding:"omitempty,oneof=super_admin admin support"`
}
