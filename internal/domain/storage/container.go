package storage

import (
	"golbarg/internal/domain/children"
	"golbarg/internal/domain/gallery"
	"golbarg/internal/domain/news"
	"golbarg/internal/domain/paymentsrepo"
	"golbarg/internal/domain/pushtokens"
	"golbarg/internal/domain/reports"
	"golbarg/internal/domain/users"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	Users       users.Store
	Children    children.Store
	Reports     reports.Store
	News        news.Store
	Gallery     gallery.Store
	PushTokens  pushtokens.Store
	Payments    paymentsrepo.Store
	PaymentLogs paymentsrepo.LogsStore
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		Users:       users.NewRepository(db),
		Children:    children.NewRepository(db),
		Reports:     reports.NewRepository(db),
		News:        news.NewRepository(db),
		Gallery:     gallery.NewRepository(db),
		PushTokens:  pushtokens.NewRepository(db),
		Payments:    paymentsrepo.NewRepository(db),
		PaymentLogs: paymentsrepo.NewLogsRepository(db),
	}
}
