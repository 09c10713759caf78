package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ashwinyue/freshcart/internal/model"
	"github.com/ashwinyue/freshcart/internal/service/chat"
	"github.com/ashwinyue/freshcart/internal/service/intent"
	"github.com/ashwinyue/freshcart/internal/service/resolver"
)

// execute 执行已确认的动作
func (s *Service) execute(ctx context.Context, userID string, conv *model.Conversation, in intent.Intent, message string, out *outcome) error {
	switch in.Kind {
	case intent.KindEndSession:
		if err := s.sessions.Delete(ctx, conv.ID); err != nil {
			return err
		}
		out.status = statusSessionEnded
		out.reply(chat.SessionEndedMessage)
		return nil
	case intent.KindAddToCart:
		return s.addToCart(ctx, userID, in, message, out)
	case intent.KindRemoveFromCart:
		return s.removeFromCart(ctx, userID, in, message, out)
	case intent.KindShowCart:
		return s.showCart(ctx, userID, out)
	case intent.KindMakeDish:
		out.status = statusNoDish
		out.reply(statusNoDish)
		return nil
	case intent.KindRecommend:
		out.status = "Product recommendation requested: " + in.Query
		return nil
	}
	return nil
}

// extractProducts 提取商品名，提取为空时回退到意图槽位
func (s *Service) extractProducts(ctx context.Context, in intent.Intent, message string, action intent.CartAction) intent.Extraction {
	ext, err := s.classifier.ExtractProducts(ctx, message, action)
	if err != nil {
		log.Printf("[Agent] product extraction failed, using intent slot: %v", err)
		ext = intent.Extraction{}
	}
	if !ext.All && len(ext.Products) == 0 && in.Product != "" {
		ext.Products = []string{in.Product}
	}
	return ext
}

// addToCart 加入一件商品
func (s *Service) addToCart(ctx context.Context, userID string, in intent.Intent, message string, out *outcome) error {
	ext := s.extractProducts(ctx, in, message, intent.ActionAdd)
	switch len(ext.Products) {
	case 0:
		out.status = statusNoProduct
		out.reply(statusNoProduct)
		return nil
	case 1:
	default:
		out.status = statusBulkAdd
		out.reply(statusBulkAdd)
		return nil
	}

	cart, err := s.userCart(ctx, userID)
	if err != nil {
		return err
	}

	phrase := strings.ToLower(strings.TrimSpace(ext.Products[0]))
	product, err := s.resolver.Resolve(ctx, phrase, resolver.CatalogScope())
	if err != nil {
		return err
	}

	if _, err := s.stores.Carts.InsertCartItem(ctx, cart.ID, product.ID, 1); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	out.status = fmt.Sprintf("Added %s to cart.", product.Name)

	return s.snapshot(ctx, cart, out)
}

// removeFromCart 移除一件商品或清空购物车
func (s *Service) removeFromCart(ctx context.Context, userID string, in intent.Intent, message string, out *outcome) error {
	ext := s.extractProducts(ctx, in, message, intent.ActionRemove)

	cart, err := s.userCart(ctx, userID)
	if err != nil {
		return err
	}

	if ext.All {
		if err := s.stores.Carts.DeleteAllCartItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		out.status = statusRemovedAll
		id := cart.ID
		out.cartLog = &CartLog{CartID: &id, Items: []*model.CartItem{}}
		return nil
	}

	switch len(ext.Products) {
	case 0:
		out.status = statusNoProduct
		out.reply(statusNoProduct)
		return nil
	case 1:
	default:
		out.status = statusBulkRemove
		out.reply(statusBulkRemove)
		return nil
	}

	items, err := s.stores.Carts.ListCartItems(ctx, cart.ID)
	if err != nil {
		return fmt.Errorf("failed to list cart items: %w", err)
	}
	if len(items) == 0 {
		return ErrCartEmpty
	}

	phrase := strings.ToLower(strings.TrimSpace(ext.Products[0]))
	product, err := s.resolver.Resolve(ctx, phrase, resolver.CartScope(cart.ID))
	if err != nil {
		return err
	}

	var line *model.CartItem
	for _, it := range items {
		if it.ProductID == product.ID {
			line = it
			break
		}
	}
	if line == nil {
		return ErrProductNotInCart
	}

	if err := s.stores.Carts.DeleteCartItem(ctx, line.ID); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	out.status = fmt.Sprintf("Removed one %s from cart.", product.Name)

	return s.snapshot(ctx, cart, out)
}

// showCart 直接返回购物车内容，不调用 LLM
func (s *Service) showCart(ctx context.Context, userID string, out *outcome) error {
	cart, err := s.stores.Carts.GetCartByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get cart: %w", err)
	}

	out.status = statusShowCart
	if cart == nil {
		out.cartLog = &CartLog{Items: []*model.CartItem{}}
		out.reply("Your cart is empty.")
		return nil
	}

	lines, err := s.cartLines(ctx, cart.ID)
	if err != nil {
		return err
	}
	items := make([]*model.CartItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, l.item)
	}
	id := cart.ID
	out.cartLog = &CartLog{CartID: &id, Items: items}

	var rows []string
	for _, l := range lines {
		if l.name != "" {
			rows = append(rows, fmt.Sprintf("* %d x %s", l.item.Quantity, l.name))
		}
	}
	if len(rows) == 0 {
		out.reply("Your cart is empty.")
		return nil
	}
	out.reply("Your cart contains:\n\n" + strings.Join(rows, "\n"))
	return nil
}

// userCart 当前用户的购物车
func (s *Service) userCart(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.stores.Carts.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

// snapshot 记录变更后的购物车行
func (s *Service) snapshot(ctx context.Context, cart *model.Cart, out *outcome) error {
	items, err := s.stores.Carts.ListCartItems(ctx, cart.ID)
	if err != nil {
		return fmt.Errorf("failed to list cart items: %w", err)
	}
	if items == nil {
		items = []*model.CartItem{}
	}
	id := cart.ID
	out.cartLog = &CartLog{CartID: &id, Items: items}
	return nil
}

// cartLine 购物车行及商品名，商品已下架时 name 为空
type cartLine struct {
	item *model.CartItem
	name string
}

// cartLines 购物车行并补全商品名
func (s *Service) cartLines(ctx context.Context, cartID uint) ([]cartLine, error) {
	items, err := s.stores.Carts.ListCartItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.stores.Catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	names := make(map[uint]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	lines := make([]cartLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, cartLine{item: it, name: names[it.ProductID]})
	}
	return lines, nil
}
