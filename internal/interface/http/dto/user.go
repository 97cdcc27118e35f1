package dto

// RegisterRequest HTTP层注册请求
// 说明:HTTP层的DTO,包含参数验证tag
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email" example:"an@example.com"`
	Password string `json:"password" binding:"required,min=8,max=20" example:"Passw0rd"`
	Name     string `json:"name" binding:"required,min=2,max=50" example:"Nguyen Van An"`
}

// LoginRequest HTTP层登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"an@example.com"`
	Password string `json:"password" binding:"required" example:"Passw0rd"`
}

// UserResponse 用户响应(不包含密码)
type UserResponse struct {
	ID    uint   `json:"id" example:"1"`
	Email string `json:"email" example:"an@example.com"`
	Name  string `json:"name" example:"Nguyen Van An"`
	Role  string `json:"role" example:"member"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token" example:"eyJhbGciOiJIUzI1NiIs..."`
	ExpiresIn   int64        `json:"expires_in" example:"7200"` // 秒
}
