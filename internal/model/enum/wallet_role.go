package enum

import "strings"

// WalletRole tags what a wallet is for. Policy code may resolve transfer
// targets by role when no explicit wallet id is configured.
type WalletRole uint8

const (
	_wallet_role_beg WalletRole = iota
	RoleMain
	RoleScalping
	RoleCopyTrading
	RoleSavings
	RoleAutoFees
	RoleVault
	RoleBackup
	_wallet_role_end
)

func (r WalletRole) IsAvailable() bool {
	return r > _wallet_role_beg && r < _wallet_role_end
}

func (r WalletRole) String() string {
	switch r {
	case RoleMain:
		return "MAIN"
	case RoleScalping:
		return "SCALPING"
	case RoleCopyTrading:
		return "COPYTRADING"
	case RoleSavings:
		return "SAVINGS"
	case RoleAutoFees:
		return "AUTO_FEES"
	case RoleVault:
		return "VAULT"
	case RoleBackup:
		return "BACKUP"
	default:
		return "UNKNOWN"
	}
}

// IsTrading reports whether the role takes market exposure.
func (r WalletRole) IsTrading() bool {
	switch r {
	case RoleMain, RoleScalping, RoleCopyTrading:
		return true
	default:
		return false
	}
}

func ParseWalletRole(raw string) (WalletRole, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MAIN":
		return RoleMain, true
	case "SCALPING":
		return RoleScalping, true
	case "COPYTRADING", "COPY_TRADING":
		return RoleCopyTrading, true
	case "SAVINGS":
		return RoleSavings, true
	case "AUTO_FEES", "FEES":
		return RoleAutoFees, true
	case "VAULT", "TREASURY":
		return RoleVault, true
	case "BACKUP", "EMERGENCY":
		return RoleBackup, true
	default:
		return 0, false
	}
}
