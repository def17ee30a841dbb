package handler

import "github.com/gin-gonic/gin"

// Routes mounts the API under /api on the given router. User routes require
// a user token, admin routes an admin token; probes are mounted elsewhere.
func (h *Handler) Routes(r gin.IRouter) {
	api := r.Group("/api")

	user := api.Group("", Auth(h.cfg.JWTSecret))
	{
		user.GET("/products", h.ListProducts)
		user.GET("/products/:id", h.GetProduct)
		user.GET("/categories", h.ListCategories)
		user.GET("/categories/:id", h.GetCategory)

		user.GET("/cart", h.GetCart)
		user.GET("/cart/minimal", h.GetCartMinimal)
		user.POST("/cart/items", h.SetCartItem)
		user.DELETE("/cart/items/:productId", h.RemoveCartItem)
		user.DELETE("/cart", h.ClearCart)

		user.GET("/coupons/applicable", h.ListApplicableCoupons)
		user.POST("/cart/coupon", h.ApplyCoupon)
		user.DELETE("/cart/coupon", h.RemoveCoupon)

		user.POST("/orders", h.PlaceOrder)
		user.POST("/orders/verify-payment", h.VerifyPayment)
		user.GET("/orders", h.ListOrders)
		user.GET("/orders/:id", h.GetOrder)
		user.POST("/orders/:id/cancel", h.CancelOrder)
		user.POST("/orders/:id/return", h.RequestReturn)
		user.POST("/orders/:id/retry-payment", h.RetryPayment)

		user.GET("/wallet", h.GetWallet)

		user.GET("/addresses", h.ListAddresses)
		user.POST("/addresses", h.CreateAddress)
		user.PUT("/addresses/:id", h.UpdateAddress)
		user.DELETE("/addresses/:id", h.DeleteAddress)
		user.POST("/addresses/:id/default", h.SetDefaultAddress)
	}

	admin := api.Group("/admin", AdminAuth(h.cfg.JWTSecret))
	{
		admin.GET("/products", h.AdminListProducts)
		admin.POST("/products", h.AdminCreateProduct)
		admin.PUT("/products/:id", h.AdminUpdateProduct)
		admin.PATCH("/products/:id/listed", h.AdminSetProductListed)
		admin.DELETE("/products/:id", h.AdminDeleteProduct)

		admin.GET("/categories", h.AdminListCategories)
		admin.POST("/categories", h.AdminCreateCategory)
		admin.PUT("/categories/:id", h.AdminUpdateCategory)
		admin.DELETE("/categories/:id", h.AdminDeleteCategory)

		admin.GET("/coupons", h.AdminListCoupons)
		admin.POST("/coupons", h.AdminCreateCoupon)
		admin.PUT("/coupons/:id", h.AdminUpdateCoupon)
		admin.DELETE("/coupons/:id", h.AdminDeleteCoupon)

		admin.GET("/offers", h.AdminListOffers)
		admin.POST("/offers/products", h.AdminApplyProductOffer)
		admin.POST("/offers/categories", h.AdminApplyCategoryOffer)

		admin.GET("/orders", h.AdminListOrders)
		admin.PUT("/orders/:id/status", h.AdminSetOrderStatus)
		admin.POST("/orders/:id/return/approve", h.AdminApproveReturn)
		admin.POST("/orders/:id/return/reject", h.AdminRejectReturn)
	}
}
