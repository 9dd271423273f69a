package service

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/models"
	"github.com/tigerpop/marketplaceapi/internal/repository"
)

// fakeUserStore is an in-memory UserStore enforcing the unique indexes the
// real table carries.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uint]*models.User)}
}

func (s *fakeUserStore) add(user *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = user
	return user
}

func (s *fakeUserStore) remove(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *fakeUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *fakeUserStore) GetByID(id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *fakeUserStore) GetByNetID(netid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.NetID != nil && *user.NetID == netid {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeUserStore) GetByUsername(username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username != nil && *user.Username == username {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeUserStore) Create(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if user.NetID != nil && existing.NetID != nil && *user.NetID == *existing.NetID {
			return gorm.ErrDuplicatedKey
		}
		if user.Username != nil && existing.Username != nil && *user.Username == *existing.Username {
			return gorm.ErrDuplicatedKey
		}
		if user.Email != nil && existing.Email != nil && *user.Email == *existing.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = user
	return nil
}

// fakeListingStore is an in-memory ListingStore.
type fakeListingStore struct {
	mu       sync.Mutex
	nextID   uint
	listings map[uint]*models.Listing
	hearts   map[[2]uint]time.Time
	saveErr  error
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{
		listings: make(map[uint]*models.Listing),
		hearts:   make(map[[2]uint]time.Time),
	}
}

func (s *fakeListingStore) add(listing *models.Listing) *models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	listing.ID = s.nextID
	if listing.Status == "" {
		listing.Status = models.ListingStatusAvailable
	}
	s.listings[listing.ID] = listing
	return listing
}

func (s *fakeListingStore) List(filter repository.ListingFilter) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Listing
	for _, l := range s.listings {
		if filter.MaxPrice != nil && l.Price > *filter.MaxPrice {
			continue
		}
		if filter.Category != "" && l.Category != filter.Category {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (s *fakeListingStore) GetByID(id uint) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *fakeListingStore) ListByOwner(userID uint) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Listing
	for _, l := range s.listings {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeListingStore) ListByBuyer(buyerID uint) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Listing
	for _, l := range s.listings {
		if l.BuyerID != nil && *l.BuyerID == buyerID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeListingStore) Create(listing *models.Listing) error {
	s.add(listing)
	return nil
}

func (s *fakeListingStore) Save(listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.listings[listing.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *listing
	cp.UpdatedAt = time.Now()
	s.listings[listing.ID] = &cp
	return nil
}

func (s *fakeListingStore) Delete(listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listings, listing.ID)
	return nil
}

func (s *fakeListingStore) ReplaceImages(listingID uint, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[listingID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Images = nil
	for _, url := range urls {
		l.Images = append(l.Images, models.ListingImage{ListingID: listingID, Filename: url})
	}
	return nil
}

func (s *fakeListingStore) GetHeart(userID, listingID uint) (*models.HeartedListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hearts[[2]uint{userID, listingID}]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.HeartedListing{UserID: userID, ListingID: listingID}, nil
}

func (s *fakeListingStore) CreateHeart(heart *models.HeartedListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uint{heart.UserID, heart.ListingID}
	if _, ok := s.hearts[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	s.hearts[key] = time.Now()
	return nil
}

func (s *fakeListingStore) DeleteHeart(userID, listingID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uint{userID, listingID}
	if _, ok := s.hearts[key]; !ok {
		return 0, nil
	}
	delete(s.hearts, key)
	return 1, nil
}

func (s *fakeListingStore) ListHearted(userID uint) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Listing
	for key := range s.hearts {
		if key[0] != userID {
			continue
		}
		if l, ok := s.listings[key[1]]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeListingStore) ReleasePendingBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released int64
	for _, l := range s.listings {
		if l.Status == models.ListingStatusPending && l.UpdatedAt.Before(cutoff) {
			l.Status = models.ListingStatusAvailable
			l.BuyerID = nil
			released++
		}
	}
	return released, nil
}

// fakeMailer records buy request notifications.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []fakeMail
	sendErr error
}

type fakeMail struct {
	listingID uint
	sellerID  uint
	buyerID   uint
	message   string
	contact   string
}

func (m *fakeMailer) SendBuyRequest(listing *models.Listing, seller, buyer *models.User, message, contact string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, fakeMail{
		listingID: listing.ID,
		sellerID:  seller.ID,
		buyerID:   buyer.ID,
		message:   message,
		contact:   contact,
	})
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
