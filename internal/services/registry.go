package services

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	AuthService    AuthService
	JournalService JournalService
	ArtService     ArtService
	InsightService InsightService
	BillingService BillingService
}
