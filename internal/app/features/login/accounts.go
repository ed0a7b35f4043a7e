// internal/app/features/login/accounts.go
package login

import (
	"fmt"
	"strings"

	"github.com/dalemusser/cafehub/internal/app/system/authz"
	"golang.org/x/crypto/bcrypt"
)

// Account is one configured back-office sign-in.
type Account struct {
	LoginID string
	Name    string
	Role    string
	Hash    []byte
}

// Accounts is keyed by the lower-cased login id.
type Accounts map[string]Account

// ParseAccounts reads "login:bcrypt-hash" or "login:role:bcrypt-hash"
// entries. Blank entries are skipped; role defaults to admin.
func ParseAccounts(entries []string) (Accounts, error) {
	out := Accounts{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		parts := strings.SplitN(e, ":", 3)
		var acc Account
		switch len(parts) {
		case 2:
			acc = Account{LoginID: parts[0], Role: authz.RoleAdmin, Hash: []byte(parts[1])}
		case 3:
			acc = Account{LoginID: parts[0], Role: strings.ToLower(parts[1]), Hash: []byte(parts[2])}
		default:
			return nil, fmt.Errorf("admin user entry %q: want login:hash or login:role:hash", e)
		}
		acc.LoginID = strings.TrimSpace(acc.LoginID)
		if acc.LoginID == "" {
			return nil, fmt.Errorf("admin user entry %q: empty login", e)
		}
		if acc.Role != authz.RoleAdmin && acc.Role != authz.RoleEditor {
			return nil, fmt.Errorf("admin user %q: unknown role %q", acc.LoginID, acc.Role)
		}
		if _, err := bcrypt.Cost(acc.Hash); err != nil {
			return nil, fmt.Errorf("admin user %q: %w", acc.LoginID, err)
		}
		acc.Name = acc.LoginID
		key := strings.ToLower(acc.LoginID)
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("admin user %q listed twice", acc.LoginID)
		}
		out[key] = acc
	}
	return out, nil
}

// Lookup finds an account ignoring case and surrounding spaces.
func (a Accounts) Lookup(loginID string) (Account, bool) {
	acc, ok := a[strings.ToLower(strings.TrimSpace(loginID))]
	return acc, ok
}

// Check reports whether password matches the account's hash.
func (acc Account) Check(password string) bool {
	return bcrypt.CompareHashAndPassword(acc.Hash, []byte(password)) == nil
}
