package dto

type AuthWalletRequest struct {
	Address string `json:"address"`
}

type RegisterRequest struct {
	Role   string   `json:"role"`             // client / freelancer
	Skills []string `json:"skills,omitempty"` // freelancer only, 1..5
}

// Amounts arrive as decimal ALEO credit strings ("1.5") and are converted
// to microcredits at the boundary.
type DepositRequest struct {
	Amount string `json:"amount"`
}

type WithdrawRequest struct {
	Amount string `json:"amount"`
}

type CreateEscrowRequest struct {
	FreelancerAddress string `json:"freelancer_address"`
	Amount            string `json:"amount"`
	Description       string `json:"description"`
}

type AddSkillRequest struct {
	Skill string `json:"skill"`
}
