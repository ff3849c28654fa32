package dto

type AuthResponse struct {
	Token string `json:"token"`
	User  any    `json:"user,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type BalanceResponse struct {
	Address       string `json:"address"`
	EscrowBalance string `json:"escrow_balance"` // ALEO credits
	EarnedBalance string `json:"earned_balance"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
