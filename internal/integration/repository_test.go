package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/metinatakli/payment-gateway/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	BaseSuite
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	s.resetPayments(s.T())
}

func (s *RepositoryTestSuite) TestCreateAndGet() {
	ctx := context.Background()

	payment := domain.NewPayment("repo-1", decimal.RequireFromString("10.50"))
	payment.Provider = domain.ProviderStripe
	payment.ProviderID = "cs_repo_1"
	payment.Description = "Repository test"
	payment.Metadata["order"] = "7"
	payment.Customer = domain.Customer{Name: TestCustomerName, Email: TestCustomerEmail}

	s.Require().NoError(s.app.Repo.Create(ctx, payment))
	s.Equal(1, payment.Version)
	s.False(payment.CreatedAt.IsZero())

	got, err := s.app.Repo.GetById(ctx, "repo-1")
	s.Require().NoError(err)
	s.True(got.Amount.Equal(payment.Amount))
	s.Equal(domain.ProviderStripe, got.Provider)
	s.Equal(domain.StatusOpen, got.Status)
	s.Equal(map[string]string{"order": "7"}, got.Metadata)
	s.Equal(payment.Customer, got.Customer)

	byProvider, err := s.app.Repo.GetByProviderId(ctx, domain.ProviderStripe, "cs_repo_1")
	s.Require().NoError(err)
	s.Equal("repo-1", byProvider.ID)

	_, err = s.app.Repo.GetByProviderId(ctx, domain.ProviderPayPal, "cs_repo_1")
	s.ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *RepositoryTestSuite) TestCreate_DuplicateId() {
	payment := domain.NewPayment(TestSeedOfflinePayment, decimal.NewFromInt(1))
	payment.Provider = domain.ProviderOffline

	err := s.app.Repo.Create(context.Background(), payment)
	s.ErrorIs(err, domain.ErrPaymentAlreadyExists)
}

func (s *RepositoryTestSuite) TestGetById_NotFound() {
	_, err := s.app.Repo.GetById(context.Background(), "missing")
	s.ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *RepositoryTestSuite) TestUpdate_KeepsOldProviderIds() {
	ctx := context.Background()

	payment, err := s.app.Repo.GetById(ctx, TestSeedOpenPayment)
	s.Require().NoError(err)

	payment.ProviderID = "pi_seed_2"
	payment.Status = domain.StatusSucceeded

	s.Require().NoError(s.app.Repo.Update(ctx, payment))
	s.Equal(2, payment.Version)

	for _, providerID := range []string{"cs_seed_2", "pi_seed_2"} {
		got, err := s.app.Repo.GetByProviderId(ctx, domain.ProviderStripe, providerID)
		s.Require().NoError(err)
		s.Equal(TestSeedOpenPayment, got.ID)
		s.Equal(domain.StatusSucceeded, got.Status)
	}
}

func (s *RepositoryTestSuite) TestUpdate_EditConflict() {
	ctx := context.Background()

	first, err := s.app.Repo.GetById(ctx, TestSeedOfflinePayment)
	s.Require().NoError(err)

	second, err := s.app.Repo.GetById(ctx, TestSeedOfflinePayment)
	s.Require().NoError(err)

	first.Status = domain.StatusPending
	s.Require().NoError(s.app.Repo.Update(ctx, first))

	second.Status = domain.StatusCancelled
	s.ErrorIs(s.app.Repo.Update(ctx, second), domain.ErrEditConflict)

	got, err := s.app.Repo.GetById(ctx, TestSeedOfflinePayment)
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, got.Status)
}

func (s *RepositoryTestSuite) TestRedisPaymentLocker() {
	ctx := context.Background()
	locker := repository.NewRedisPaymentLocker(s.app.RedisClient, 200*time.Millisecond)

	unlock, err := locker.Lock(ctx, "lock-1")
	s.Require().NoError(err)

	_, err = locker.Lock(ctx, "lock-1")
	s.ErrorIs(err, domain.ErrPaymentLocked)

	other, err := locker.Lock(ctx, "lock-2")
	s.Require().NoError(err)
	s.NoError(other(ctx))

	s.NoError(unlock(ctx))

	relock, err := locker.Lock(ctx, "lock-1")
	s.Require().NoError(err)
	s.NoError(relock(ctx))
}

func (s *RepositoryTestSuite) TestRedisPaymentLocker_ExpiredLockIsNotReleasedByOldOwner() {
	ctx := context.Background()
	locker := repository.NewRedisPaymentLocker(s.app.RedisClient, 100*time.Millisecond)

	stale, err := locker.Lock(ctx, "lock-3")
	s.Require().NoError(err)

	s.Eventually(func() bool {
		unlock, err := locker.Lock(ctx, "lock-3")
		if err != nil {
			return false
		}

		// the stale owner must not drop the new owner's lock
		s.NoError(stale(ctx))

		_, err = locker.Lock(ctx, "lock-3")
		s.ErrorIs(err, domain.ErrPaymentLocked)

		s.NoError(unlock(ctx))
		return true
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RepositoryTestSuite) TestGetAll() {
	tests := []struct {
		name        string
		filters     domain.PaymentFilters
		expectedIds []string
		expectedMd  domain.PageMetadata
	}{
		{
			name: "highest amount first",
			filters: domain.PaymentFilters{
				Pagination: domain.Pagination{Page: 1, PageSize: 20, Sort: "-amount"},
			},
			expectedIds: []string{TestSeedOpenPayment, TestSeedOfflinePayment, TestSeedStripePayment},
			expectedMd:  domain.PageMetadata{CurrentPage: 1, FirstPage: 1, LastPage: 1, PageSize: 20, TotalRecords: 3},
		},
		{
			name: "second page",
			filters: domain.PaymentFilters{
				Pagination: domain.Pagination{Page: 2, PageSize: 1, Sort: "-amount"},
			},
			expectedIds: []string{TestSeedOfflinePayment},
			expectedMd:  domain.PageMetadata{CurrentPage: 2, FirstPage: 1, LastPage: 3, PageSize: 1, TotalRecords: 3},
		},
		{
			name: "page past the end",
			filters: domain.PaymentFilters{
				Pagination: domain.Pagination{Page: 5, PageSize: 2, Sort: "-amount"},
			},
			expectedIds: []string{},
			expectedMd:  domain.PageMetadata{CurrentPage: 5, FirstPage: 1, LastPage: 2, PageSize: 2, TotalRecords: 3},
		},
		{
			name: "provider filter",
			filters: domain.PaymentFilters{
				Pagination: domain.Pagination{Page: 1, PageSize: 20, Sort: "amount"},
				Provider:   domain.ProviderStripe,
			},
			expectedIds: []string{TestSeedStripePayment, TestSeedOpenPayment},
			expectedMd:  domain.PageMetadata{CurrentPage: 1, FirstPage: 1, LastPage: 1, PageSize: 20, TotalRecords: 2},
		},
		{
			name: "status filter",
			filters: domain.PaymentFilters{
				Pagination: domain.Pagination{Page: 1, PageSize: 20, Sort: "amount"},
				Status:     domain.StatusSucceeded,
			},
			expectedIds: []string{TestSeedStripePayment},
			expectedMd:  domain.PageMetadata{CurrentPage: 1, FirstPage: 1, LastPage: 1, PageSize: 20, TotalRecords: 1},
		},
		{
			name: "nothing matches",
			filters: domain.PaymentFilters{
				Pagination: domain.Pagination{Page: 1, PageSize: 20, Sort: "-created_at"},
				Provider:   domain.ProviderPayPal,
			},
			expectedIds: []string{},
			expectedMd:  domain.PageMetadata{},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			payments, metadata, err := s.app.Repo.GetAll(context.Background(), tt.filters)
			s.Require().NoError(err)

			ids := make([]string, 0, len(payments))
			for _, p := range payments {
				ids = append(ids, p.ID)
			}

			s.Equal(tt.expectedIds, ids)
			s.Equal(tt.expectedMd, *metadata)
		})
	}
}
