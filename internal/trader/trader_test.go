package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skalibog/ocobot/pkg/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testFilter() models.LotSizeFilter {
	return models.LotSizeFilter{
		MinQty:   d("0.01"),
		MaxQty:   d("100"),
		StepSize: d("0.001"),
	}
}

// fakeExchange подставная биржа со счетчиками вызовов
type fakeExchange struct {
	balances      []models.AssetBalance
	balancesErr   error
	balancesCalls int

	openOCO    []models.OCOOrder
	openOCOErr error

	filter    models.LotSizeFilter
	filterErr error

	price    decimal.Decimal
	priceErr error

	marketOrders []string // "BUY 1.00000000"
	marketErr    error

	ocoCalls     int
	ocoQuantity  string
	ocoLimit     string
	ocoStop      string
	ocoErr       error

	cancelCalls int
	cancelErr   error
}

func (f *fakeExchange) AccountBalances(context.Context) ([]models.AssetBalance, error) {
	f.balancesCalls++
	if f.balancesErr != nil {
		return nil, f.balancesErr
	}
	return f.balances, nil
}

func (f *fakeExchange) OpenOCOOrders(context.Context, string) ([]models.OCOOrder, error) {
	return f.openOCO, f.openOCOErr
}

func (f *fakeExchange) LotSizeFilter(context.Context, string) (models.LotSizeFilter, error) {
	return f.filter, f.filterErr
}

func (f *fakeExchange) Price(context.Context, string) (decimal.Decimal, error) {
	if f.priceErr != nil {
		return decimal.Zero, f.priceErr
	}
	return f.price, nil
}

func (f *fakeExchange) SubmitMarketOrder(_ context.Context, _ string, side models.Side, quantity string) error {
	if f.marketErr != nil {
		return f.marketErr
	}
	f.marketOrders = append(f.marketOrders, string(side)+" "+quantity)
	return nil
}

func (f *fakeExchange) SubmitOCOSell(_ context.Context, _, quantity, limitPrice, stopPrice string) error {
	if f.ocoErr != nil {
		return f.ocoErr
	}
	f.ocoCalls++
	f.ocoQuantity = quantity
	f.ocoLimit = limitPrice
	f.ocoStop = stopPrice
	return nil
}

func (f *fakeExchange) CancelOpenOrders(context.Context, string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelCalls++
	return nil
}

func newTestTrader(f *fakeExchange) *Trader {
	tr := New(f, models.NewCoinPair("SOL", "USDT"), Settings{
		RiskPercent:       0.1,
		StopLossPercent:   0.02,
		TakeProfitPercent: 0.05,
	})
	tr.filters = testFilter()
	return tr
}

func TestNormalizeQuantity(t *testing.T) {
	filter := testFilter()
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"округление вниз до шага", "0.0547", "0.054"},
		{"ниже минимума — ноль", "0.0009", "0"},
		{"выше максимума — ограничение", "150", "100"},
		{"точное кратное шагу", "0.054", "0.054"},
		{"ровно минимум", "0.01", "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeQuantity(filter, d(tt.amount))
			if !got.Equal(d(tt.want)) {
				t.Fatalf("NormalizeQuantity(%s) = %s, ожидалось %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuantityZeroStep(t *testing.T) {
	got := NormalizeQuantity(models.LotSizeFilter{}, d("1"))
	if !got.IsZero() {
		t.Fatalf("при нулевом stepSize ожидался ноль, получено %s", got)
	}
}

func TestWalletCacheTTL(t *testing.T) {
	f := &fakeExchange{balances: []models.AssetBalance{
		{Asset: "SOL", Free: d("2")},
		{Asset: "USDT", Free: d("1000")},
	}}
	w := NewWallet(f, models.NewCoinPair("SOL", "USDT"))

	start := time.Now()
	clock := start
	w.now = func() time.Time { return clock }

	ctx := context.Background()
	if _, err := w.Cached(ctx); err != nil {
		t.Fatalf("первое чтение: %v", err)
	}
	if f.balancesCalls != 1 {
		t.Fatalf("первое чтение должно запросить биржу, вызовов %d", f.balancesCalls)
	}

	clock = start.Add(2999 * time.Millisecond)
	pair, err := w.Cached(ctx)
	if err != nil {
		t.Fatalf("чтение из кэша: %v", err)
	}
	if f.balancesCalls != 1 {
		t.Fatalf("чтение в пределах TTL не должно запрашивать биржу, вызовов %d", f.balancesCalls)
	}
	if !pair.Quote.Equal(d("1000")) {
		t.Fatalf("неверный баланс из кэша: %s", pair.Quote)
	}

	clock = start.Add(3001 * time.Millisecond)
	if _, err := w.Cached(ctx); err != nil {
		t.Fatalf("чтение после TTL: %v", err)
	}
	if f.balancesCalls != 2 {
		t.Fatalf("чтение после TTL должно запросить биржу ровно один раз, вызовов %d", f.balancesCalls)
	}
}

func TestWalletStaleOnFetchError(t *testing.T) {
	f := &fakeExchange{balances: []models.AssetBalance{
		{Asset: "USDT", Free: d("500")},
	}}
	w := NewWallet(f, models.NewCoinPair("SOL", "USDT"))

	start := time.Now()
	clock := start
	w.now = func() time.Time { return clock }

	ctx := context.Background()
	if _, err := w.Cached(ctx); err != nil {
		t.Fatalf("первое чтение: %v", err)
	}

	clock = start.Add(5 * time.Second)
	f.balancesErr = errors.New("api down")
	pair, err := w.Cached(ctx)
	if err == nil {
		t.Fatal("ошибка запроса должна отдаваться вызывающему")
	}
	if !pair.Quote.Equal(d("500")) {
		t.Fatalf("при ошибке должен возвращаться устаревший баланс, получено %s", pair.Quote)
	}
}

func TestWalletMissingAssetIsZero(t *testing.T) {
	f := &fakeExchange{balances: []models.AssetBalance{
		{Asset: "BTC", Free: d("1")},
	}}
	w := NewWallet(f, models.NewCoinPair("SOL", "USDT"))
	pair, err := w.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !pair.Base.IsZero() || !pair.Quote.IsZero() {
		t.Fatalf("отсутствующие активы должны быть нулевыми: %+v", pair)
	}
}

func TestInitRestoresPositionState(t *testing.T) {
	f := &fakeExchange{
		balances: []models.AssetBalance{{Asset: "USDT", Free: d("100")}},
		filter:   testFilter(),
		openOCO:  []models.OCOOrder{{OrderListID: 7, Symbol: "SOLUSDT"}},
	}
	tr := New(f, models.NewCoinPair("SOL", "USDT"), Settings{RiskPercent: 0.1, StopLossPercent: 0.02, TakeProfitPercent: 0.05})
	if err := tr.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !tr.HasPosition() {
		t.Fatal("открытый OCO должен восстанавливать состояние позиции")
	}
}

func TestInitFailsWithoutFilters(t *testing.T) {
	f := &fakeExchange{
		balances:  []models.AssetBalance{{Asset: "USDT", Free: d("100")}},
		filterErr: errors.New("api down"),
	}
	tr := New(f, models.NewCoinPair("SOL", "USDT"), Settings{RiskPercent: 0.1, StopLossPercent: 0.02, TakeProfitPercent: 0.05})
	if err := tr.Init(context.Background()); err == nil {
		t.Fatal("ошибка загрузки фильтров должна быть фатальной")
	}
}

func TestEnterLongHappyPath(t *testing.T) {
	f := &fakeExchange{
		balances: []models.AssetBalance{{Asset: "USDT", Free: d("1000")}},
		price:    d("100"),
	}
	tr := newTestTrader(f)

	exec, err := tr.EnterLong(context.Background())
	if err != nil {
		t.Fatalf("EnterLong: %v", err)
	}
	if exec == nil {
		t.Fatal("ожидалось исполнение")
	}
	// 1000 USDT / 100 * 0.1 = 1 SOL
	if len(f.marketOrders) != 1 || f.marketOrders[0] != "BUY 1.00000000" {
		t.Fatalf("неверная маркет-покупка: %v", f.marketOrders)
	}
	if f.ocoCalls != 1 || f.ocoQuantity != "1.00000000" {
		t.Fatalf("неверный OCO: вызовов %d, количество %s", f.ocoCalls, f.ocoQuantity)
	}
	if f.ocoLimit != "105.00" || f.ocoStop != "98.00" {
		t.Fatalf("неверные цены брекета: tp=%s sl=%s", f.ocoLimit, f.ocoStop)
	}
	if !tr.HasPosition() {
		t.Fatal("после успешного брекета позиция должна быть открыта")
	}
	if !exec.Quantity.Equal(d("1")) || !exec.Price.Equal(d("100")) {
		t.Fatalf("неверное исполнение: %+v", exec)
	}
}

func TestEnterLongTwiceIsNoOp(t *testing.T) {
	f := &fakeExchange{
		balances: []models.AssetBalance{{Asset: "USDT", Free: d("1000")}},
		price:    d("100"),
	}
	tr := newTestTrader(f)
	ctx := context.Background()

	if _, err := tr.EnterLong(ctx); err != nil {
		t.Fatalf("первый вход: %v", err)
	}
	exec, err := tr.EnterLong(ctx)
	if err != nil {
		t.Fatalf("второй вход: %v", err)
	}
	if exec != nil {
		t.Fatal("повторный вход должен быть no-op")
	}
	if len(f.marketOrders) != 1 || f.ocoCalls != 1 {
		t.Fatalf("API ордеров должны вызываться ровно один раз: market=%d oco=%d", len(f.marketOrders), f.ocoCalls)
	}
}

func TestEnterLongTooSmallIsNoOp(t *testing.T) {
	f := &fakeExchange{
		balances: []models.AssetBalance{{Asset: "USDT", Free: d("5")}},
		price:    d("100"),
	}
	tr := newTestTrader(f)

	// 5 / 100 * 0.1 = 0.005, ниже minQty 0.01
	exec, err := tr.EnterLong(context.Background())
	if err != nil {
		t.Fatalf("EnterLong: %v", err)
	}
	if exec != nil {
		t.Fatal("ожидался no-op при количестве ниже минимума")
	}
	if len(f.marketOrders) != 0 || f.ocoCalls != 0 {
		t.Fatal("ордера не должны отправляться при количестве ниже минимума")
	}
	if tr.HasPosition() {
		t.Fatal("позиция не должна открываться")
	}
}

func TestEnterLongBracketFailureSurfacesError(t *testing.T) {
	f := &fakeExchange{
		balances: []models.AssetBalance{{Asset: "USDT", Free: d("1000")}},
		price:    d("100"),
		ocoErr:   errors.New("oco rejected"),
	}
	tr := newTestTrader(f)

	_, err := tr.EnterLong(context.Background())
	if err == nil {
		t.Fatal("ошибка брекета после покупки должна отдаваться наверх")
	}
	if len(f.marketOrders) != 1 {
		t.Fatalf("маркет-покупка должна пройти, вызовов %d", len(f.marketOrders))
	}
	if tr.HasPosition() {
		t.Fatal("позиция не считается открытой без подтвержденного брекета")
	}
}

func TestEnterLongMarketFailureLeavesStateClean(t *testing.T) {
	f := &fakeExchange{
		balances:  []models.AssetBalance{{Asset: "USDT", Free: d("1000")}},
		price:     d("100"),
		marketErr: errors.New("insufficient funds"),
	}
	tr := newTestTrader(f)

	if _, err := tr.EnterLong(context.Background()); err == nil {
		t.Fatal("ошибка маркет-покупки должна отдаваться наверх")
	}
	if f.ocoCalls != 0 {
		t.Fatal("брекет не должен выставляться после неудачной покупки")
	}
	if tr.HasPosition() {
		t.Fatal("состояние должно остаться без изменений")
	}
}

func TestExitLongFlow(t *testing.T) {
	f := &fakeExchange{
		balances: []models.AssetBalance{
			{Asset: "SOL", Free: d("1.0005")},
			{Asset: "USDT", Free: d("1000")},
		},
		price: d("100"),
	}
	tr := newTestTrader(f)
	tr.hasPosition = true

	exec, err := tr.ExitLong(context.Background())
	if err != nil {
		t.Fatalf("ExitLong: %v", err)
	}
	if exec == nil {
		t.Fatal("ожидалось исполнение")
	}
	if f.cancelCalls != 1 {
		t.Fatalf("брекет должен отменяться один раз, вызовов %d", f.cancelCalls)
	}
	if len(f.marketOrders) != 1 || f.marketOrders[0] != "SELL 1.00000000" {
		t.Fatalf("неверная маркет-продажа: %v", f.marketOrders)
	}
	if tr.HasPosition() {
		t.Fatal("после выхода позиция должна быть закрыта")
	}
}

func TestExitLongWithoutPositionIsNoOp(t *testing.T) {
	f := &fakeExchange{}
	tr := newTestTrader(f)

	exec, err := tr.ExitLong(context.Background())
	if err != nil {
		t.Fatalf("ExitLong: %v", err)
	}
	if exec != nil {
		t.Fatal("выход без позиции должен быть no-op")
	}
	if f.cancelCalls != 0 || len(f.marketOrders) != 0 {
		t.Fatal("без позиции API не должен вызываться")
	}
}

func TestExitLongDustIsNotSold(t *testing.T) {
	f := &fakeExchange{
		balances: []models.AssetBalance{
			{Asset: "SOL", Free: d("0.0009")},
		},
		price: d("100"),
	}
	tr := newTestTrader(f)
	tr.hasPosition = true

	exec, err := tr.ExitLong(context.Background())
	if err != nil {
		t.Fatalf("ExitLong: %v", err)
	}
	if exec != nil {
		t.Fatal("пыль не должна продаваться")
	}
	if len(f.marketOrders) != 0 {
		t.Fatal("маркет-продажа не должна отправляться для пыли")
	}
	if tr.HasPosition() {
		t.Fatal("брекет отменен, позиция считается закрытой")
	}
}

func TestExitLongCancelFailureKeepsPosition(t *testing.T) {
	f := &fakeExchange{
		balances:  []models.AssetBalance{{Asset: "SOL", Free: d("1")}},
		cancelErr: errors.New("api down"),
	}
	tr := newTestTrader(f)
	tr.hasPosition = true

	if _, err := tr.ExitLong(context.Background()); err == nil {
		t.Fatal("ошибка отмены должна отдаваться наверх")
	}
	if !tr.HasPosition() {
		t.Fatal("при неудачной отмене состояние не должно меняться")
	}
}
