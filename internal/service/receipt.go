package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"chitfund-backend/internal/domain"
	"chitfund-backend/internal/logger"
	"chitfund-backend/internal/repository"
	"chitfund-backend/internal/storage"

	"github.com/google/uuid"
)

type receiptService struct {
	collectionRepo repository.CollectionRepository
	store          storage.ReceiptStore
}

func NewReceiptService(collectionRepo repository.CollectionRepository, store storage.ReceiptStore) ReceiptService {
	return &receiptService{collectionRepo: collectionRepo, store: store}
}

// IssueReceipt returns the existing URL when the receipt was issued before.
func (s *receiptService) IssueReceipt(ctx context.Context, collectionID int32) (string, error) {
	logger.EnterMethod("receiptService.IssueReceipt", "collectionID", collectionID)

	c, err := s.collectionRepo.GetByID(ctx, collectionID)
	if err != nil {
		logger.ExitMethodWithError("receiptService.IssueReceipt", err)
		return "", err
	}
	if c.ReceiptURL != "" {
		logger.ExitMethod("receiptService.IssueReceipt", "collectionID", collectionID, "reused", true)
		return c.ReceiptURL, nil
	}
	if c.Status != domain.CollectionStatusApproved {
		err := fmt.Errorf("%w: collection %d is %s", domain.ErrInvalidState, collectionID, c.Status)
		logger.ExitMethodWithError("receiptService.IssueReceipt", err)
		return "", err
	}

	key := fmt.Sprintf("groups/%d/%s-%s.txt", c.GroupID, c.ReceiptNo, uuid.NewString())
	metadata := map[string]string{
		"receipt_no": c.ReceiptNo,
		"amount":     c.Amount.StringFixed(2),
		"fine":       c.Fine.StringFixed(2),
		"payer":      strconv.Itoa(int(c.MemberID)),
		"date":       c.PaymentDate.UTC().Format("2006-01-02"),
	}
	url, err := s.store.Put(ctx, key, "text/plain; charset=utf-8", bytes.NewReader(renderReceipt(c)), metadata)
	if err != nil {
		logger.ExitMethodWithError("receiptService.IssueReceipt", err, "key", key)
		return "", fmt.Errorf("store receipt: %w", err)
	}
	if err := s.collectionRepo.SetReceiptURL(ctx, collectionID, url); err != nil {
		logger.ExitMethodWithError("receiptService.IssueReceipt", err)
		return "", err
	}
	logger.ExitMethod("receiptService.IssueReceipt", "collectionID", collectionID, "url", url)
	return url, nil
}

func renderReceipt(c *domain.Collection) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Receipt %s\n", c.ReceiptNo)
	fmt.Fprintf(&b, "Member:  %d\n", c.MemberID)
	fmt.Fprintf(&b, "Group:   %d (cycle %d)\n", c.GroupID, c.Cycle)
	fmt.Fprintf(&b, "Date:    %s\n", c.PaymentDate.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Mode:    %s\n", c.PaymentMode)
	fmt.Fprintf(&b, "Amount:  %s\n", c.Amount.StringFixed(2))
	if c.Fine.IsPositive() {
		fmt.Fprintf(&b, "Fine:    %s\n", c.Fine.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total:   %s\n", c.Amount.Add(c.Fine).StringFixed(2))
	return b.Bytes()
}
