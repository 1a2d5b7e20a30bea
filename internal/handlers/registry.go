package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler    *AuthHandler
	JournalHandler *JournalHandler
	InsightHandler *InsightHandler
	BillingHandler *BillingHandler
}

// RegisterRoutes регистрирует маршруты всех хэндлеров
func (a *AppHandlers) RegisterRoutes(g RouteGroups) {
	a.AuthHandler.RegisterRoutes(g)
	a.JournalHandler.RegisterRoutes(g)
	a.InsightHandler.RegisterRoutes(g)
	a.BillingHandler.RegisterRoutes(g)
}
