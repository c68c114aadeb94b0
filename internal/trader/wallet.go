package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/skalibog/ocobot/pkg/models"
)

// balanceTTL время жизни кэша балансов
const balanceTTL = 3000 * time.Millisecond

// AccountAPI операции аккаунта, нужные кошельку
type AccountAPI interface {
	AccountBalances(ctx context.Context) ([]models.AssetBalance, error)
}

// Wallet кэширует остатки базового и котируемого активов.
// Единственный писатель — сам кошелек, сериализацию обеспечивает
// однопоточный цикл событий, мьютекс не нужен.
type Wallet struct {
	api       AccountAPI
	pair      models.CoinPair
	cached    models.BalancePair
	fetchedAt time.Time
	now       func() time.Time
}

// NewWallet создает кошелек для пары
func NewWallet(api AccountAPI, pair models.CoinPair) *Wallet {
	return &Wallet{
		api:  api,
		pair: pair,
		now:  time.Now,
	}
}

// Fetch запрашивает балансы с биржи без кэша.
// Отсутствующий в ответе актив считается нулевым.
func (w *Wallet) Fetch(ctx context.Context) (models.BalancePair, error) {
	balances, err := w.api.AccountBalances(ctx)
	if err != nil {
		return models.BalancePair{}, fmt.Errorf("ошибка получения балансов: %w", err)
	}

	var pair models.BalancePair
	for _, b := range balances {
		switch b.Asset {
		case w.pair.Base:
			pair.Base = b.Free
		case w.pair.Quote:
			pair.Quote = b.Free
		}
	}
	return pair, nil
}

// Cached возвращает балансы не старше balanceTTL: свежий кэш отдается
// как есть, просроченный обновляется синхронным запросом. При ошибке
// запроса возвращается устаревшее значение вместе с ошибкой —
// вызывающий логирует и продолжает работу.
func (w *Wallet) Cached(ctx context.Context) (models.BalancePair, error) {
	if !w.fetchedAt.IsZero() && w.now().Sub(w.fetchedAt) < balanceTTL {
		return w.cached, nil
	}

	pair, err := w.Fetch(ctx)
	if err != nil {
		return w.cached, err
	}

	w.cached = pair
	w.fetchedAt = w.now()
	return pair, nil
}
