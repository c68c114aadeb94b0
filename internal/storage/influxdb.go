package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/skalibog/ocobot/internal/config"
	"github.com/skalibog/ocobot/internal/strategy"
	"github.com/skalibog/ocobot/pkg/models"
)

// Recorder пишет телеметрию сигналов и сделок.
// Запись не должна блокировать или ронять торговый цикл.
type Recorder interface {
	RecordSignal(symbol string, signal strategy.Signal, price float64)
	RecordTrade(symbol string, trade models.TradeEvent)
	Close()
}

// Nop заглушка, когда хранилище выключено
type Nop struct{}

func (Nop) RecordSignal(string, strategy.Signal, float64) {}
func (Nop) RecordTrade(string, models.TradeEvent)         {}
func (Nop) Close()                                        {}

// InfluxDBRecorder реализует Recorder поверх InfluxDB
type InfluxDBRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// NewInfluxDBRecorder создает подключение к InfluxDB.
// Используется асинхронный WriteAPI: точки буферизуются и пишутся
// в фоне, ошибки записи не видны торговому циклу.
func NewInfluxDBRecorder(cfg config.StorageConfig) (*InfluxDBRecorder, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxDBRecorder{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Organization, cfg.Bucket),
	}, nil
}

// RecordSignal сохраняет оцененный сигнал
func (r *InfluxDBRecorder) RecordSignal(symbol string, signal strategy.Signal, price float64) {
	point := influxdb2.NewPoint(
		"signals",
		map[string]string{
			"symbol":   symbol,
			"strategy": string(signal.Strategy),
		},
		map[string]interface{}{
			"type":   string(signal.Type),
			"reason": signal.Reason,
			"price":  price,
		},
		time.Now(),
	)
	r.writeAPI.WritePoint(point)
}

// RecordTrade сохраняет исполненную сделку
func (r *InfluxDBRecorder) RecordTrade(symbol string, trade models.TradeEvent) {
	price, _ := trade.Price.Float64()
	quantity, _ := trade.Quantity.Float64()
	point := influxdb2.NewPoint(
		"trades",
		map[string]string{
			"symbol": symbol,
			"action": trade.Action,
		},
		map[string]interface{}{
			"price":    price,
			"quantity": quantity,
		},
		trade.Time,
	)
	r.writeAPI.WritePoint(point)
}

// Close сбрасывает буфер и закрывает соединение
func (r *InfluxDBRecorder) Close() {
	r.writeAPI.Flush()
	r.client.Close()
}

// FromConfig возвращает InfluxDB-рекордер либо заглушку,
// когда хранилище выключено
func FromConfig(cfg config.StorageConfig) (Recorder, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	return NewInfluxDBRecorder(cfg)
}
