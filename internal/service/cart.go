package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront/mirror/internal/domain"
	"storefront/mirror/internal/repository"
	"storefront/mirror/internal/session"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product id is required")
)

type CartService struct {
	sessions   session.Store
	repository repository.ProductRepository
}

func NewCartService(sessions session.Store, repository repository.ProductRepository) *CartService {
	return &CartService{
		sessions:   sessions,
		repository: repository,
	}
}

// Add increments the quantity of productID by quantity
func (s *CartService) Add(ctx context.Context, sessionID, productID string, quantity int) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := s.sessions.Add(ctx, sessionID, productID, quantity); err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	return nil
}

// SetQuantity replaces the quantity of productID; zero or less removes it
func (s *CartService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrInvalidProduct
	}
	if err := s.sessions.Set(ctx, sessionID, productID, quantity); err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	return nil
}

func (s *CartService) Remove(ctx context.Context, sessionID, productID string) error {
	if err := s.sessions.Remove(ctx, sessionID, strings.TrimSpace(productID)); err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

func (s *CartService) View(ctx context.Context, sessionID string) (domain.CartView, error) {
	cart, err := s.sessions.Cart(ctx, sessionID)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("failed to load cart: %w", err)
	}
	return s.BuildCartView(ctx, cart)
}

// BuildCartView prices every entry against the local store. Products the
// store does not hold are left out of the view; unparseable prices count as 0.
func (s *CartService) BuildCartView(ctx context.Context, cart domain.Cart) (domain.CartView, error) {
	productIDs := make([]string, 0, len(cart))
	for id := range cart {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	view := domain.CartView{Lines: make([]domain.CartLine, 0, len(productIDs))}
	total := decimal.Zero

	for _, id := range productIDs {
		quantity := cart[id]
		if quantity <= 0 {
			continue
		}

		product, err := s.repository.FindByID(ctx, id)
		if err != nil {
			return domain.CartView{}, fmt.Errorf("failed to look up product %s: %w", id, err)
		}
		if product == nil {
			log.Debugf("Cart product %s is not in the catalog store", id)
			continue
		}

		price := domain.ParsePriceDecimal(product.UnitPrice)
		subtotal := price.Mul(decimal.NewFromInt(int64(quantity)))
		total = total.Add(subtotal)

		view.Lines = append(view.Lines, domain.CartLine{
			ProductID:    product.ID,
			DisplayName:  product.DisplayName,
			ThumbnailURL: product.ThumbnailURL,
			UnitPrice:    product.UnitPrice,
			Price:        price.InexactFloat64(),
			Quantity:     quantity,
			Subtotal:     subtotal.InexactFloat64(),
		})
	}

	view.Total = total.InexactFloat64()
	return view, nil
}
