// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the development accounts.
package nameservice

import (
	"crypto/ecdsa"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[database.AccountID]string
	names    map[string]database.AccountID
	files    map[string]string
}

// New constructs a name service with accounts from the zblock/accounts folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[database.AccountID]string),
		names:    make(map[string]database.AccountID),
		files:    make(map[string]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")
		accountID := database.PublicKeyToAccountID(privateKey.PublicKey)

		ns.accounts[accountID] = name
		ns.names[name] = accountID
		ns.files[name] = fileName

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account.
func (ns *NameService) Lookup(accountID database.AccountID) string {
	name, exists := ns.accounts[accountID]
	if !exists {
		return string(accountID)
	}
	return name
}

// AccountID resolves a name or a hex address to an account id.
func (ns *NameService) AccountID(nameOrAddress string) (database.AccountID, error) {
	if accountID, exists := ns.names[nameOrAddress]; exists {
		return accountID, nil
	}

	return database.ToAccountID(nameOrAddress)
}

// PrivateKey loads the private key of the named account.
func (ns *NameService) PrivateKey(name string) (*ecdsa.PrivateKey, error) {
	file, exists := ns.files[name]
	if !exists {
		return nil, fmt.Errorf("account %q is not known", name)
	}

	return crypto.LoadECDSA(file)
}

// Names returns the known account names sorted.
func (ns *NameService) Names() []string {
	names := make([]string, 0, len(ns.names))
	for name := range ns.names {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[database.AccountID]string {
	cpy := make(map[database.AccountID]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
