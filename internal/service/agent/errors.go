package agent

import (
	"errors"

	"github.com/ashwinyue/freshcart/internal/service/resolver"
)

var (
	// ErrAssistantUnavailable 最终回复生成失败
	ErrAssistantUnavailable = errors.New("assistant unavailable")
	// ErrCartNotFound 用户没有购物车
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartEmpty 购物车为空
	ErrCartEmpty = errors.New("cart is empty")
	// ErrProductNotInCart 解析出的商品没有对应购物车行
	ErrProductNotInCart = errors.New("product not in cart")
)

// statusText 动作错误对应的状态文本
func statusText(err error) string {
	switch {
	case errors.Is(err, resolver.ErrProductNotFoundInCart):
		return "Product not found in cart"
	case errors.Is(err, resolver.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, ErrCartEmpty):
		return "Cart is empty"
	case errors.Is(err, ErrProductNotInCart):
		return "Product not in cart"
	case errors.Is(err, ErrCartNotFound):
		return "Cart not found"
	default:
		return err.Error()
	}
}
