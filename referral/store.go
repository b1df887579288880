package referral

import (
	"strings"
	"sync"

	"github.com/everFinance/nftmarket/rawdb"
	"github.com/everFinance/nftmarket/schema"
)

// Store is the single pending referral code slot. A new capture always
// replaces the previous code.
type Store struct {
	db   rawdb.KeyValueDB
	lock sync.Mutex
}

func NewStore(db rawdb.KeyValueDB) *Store {
	return &Store{db: db}
}

// Capture trims code and stores it; an empty code is ignored.
func (s *Store) Capture(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.db.Put(schema.ReferralBucket, schema.PendingRefCodeKey, []byte(code))
}

// Read returns "" when no code is pending.
func (s *Store) Read() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.read()
}

func (s *Store) read() (string, error) {
	data, err := s.db.Get(schema.ReferralBucket, schema.PendingRefCodeKey)
	if err == schema.ErrNotExist {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.db.Delete(schema.ReferralBucket, schema.PendingRefCodeKey)
}

// ClearIf clears the slot only if it still holds code.
func (s *Store) ClearIf(code string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	cur, err := s.read()
	if err != nil {
		return false, err
	}
	if cur != code {
		return false, nil
	}
	if err = s.db.Delete(schema.ReferralBucket, schema.PendingRefCodeKey); err != nil {
		return false, err
	}
	return true, nil
}
