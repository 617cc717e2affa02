package store

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"

	"main/internal/ledger"
	"main/internal/model"
)

// TradeEventRecord is one settled position event row.
type TradeEventRecord struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement"`
	PositionID string          `gorm:"index;size:128"`
	WalletID   string          `gorm:"index;size:64"`
	Symbol     string          `gorm:"size:32"`
	Kind       string          `gorm:"size:32"`
	Price      decimal.Decimal `gorm:"type:numeric(30,10)"`
	CloseQty   decimal.Decimal `gorm:"type:numeric(30,10)"`
	PnL        decimal.Decimal `gorm:"type:numeric(30,10)"`
	Fees       decimal.Decimal `gorm:"type:numeric(30,10)"`
	Outcome    string          `gorm:"size:32"`
	OccurredAt time.Time       `gorm:"index"`
	CreatedAt  time.Time
}

func (TradeEventRecord) TableName() string { return "trade_events" }

// TransferRecord is one executed wallet-to-wallet transfer row.
type TransferRecord struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	SourceID      string          `gorm:"index;size:64"`
	TargetID      string          `gorm:"index;size:64"`
	Moved         decimal.Decimal `gorm:"type:numeric(30,10)"`
	SourceBalance decimal.Decimal `gorm:"type:numeric(30,10)"`
	TargetBalance decimal.Decimal `gorm:"type:numeric(30,10)"`
	Reason        string          `gorm:"size:128"`
	CreatedAt     time.Time       `gorm:"index"`
}

func (TransferRecord) TableName() string { return "transfers" }

// Journal writes settled events to Postgres. A write failure logs and
// drops the row rather than stalling settlement.
type Journal struct {
	db *gorm.DB
}

// NewJournal opens the connection and migrates the schema.
func NewJournal(opt Option) (*Journal, error) {
	db, err := open(opt)
	if err != nil {
		return nil, errors.Wrap(err, "open journal db")
	}
	if err := db.AutoMigrate(&TradeEventRecord{}, &TransferRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate journal schema")
	}
	return &Journal{db: db}, nil
}

// RecordEvent persists one settled event.
func (j *Journal) RecordEvent(e model.PositionEvent, out ledger.ApplyOutcome) {
	rec := TradeEventRecord{
		PositionID: e.PositionID,
		WalletID:   e.WalletID,
		Symbol:     e.Symbol,
		Kind:       e.Kind.String(),
		Price:      e.Price,
		CloseQty:   e.CloseQty,
		PnL:        e.PnL,
		Fees:       e.Fees,
		Outcome:    out.String(),
		OccurredAt: e.Timestamp,
	}
	if err := j.db.Create(&rec).Error; err != nil {
		logs.Errorf("store: journal write failed for %s: %+v", e.PositionID, err)
	}
}

// RecordTransfer persists one executed transfer.
func (j *Journal) RecordTransfer(sourceID, targetID, reason string, res ledger.TransferResult) {
	rec := TransferRecord{
		SourceID:      sourceID,
		TargetID:      targetID,
		Moved:         res.Moved,
		SourceBalance: res.SourceBalance,
		TargetBalance: res.TargetBalance,
		Reason:        reason,
	}
	if err := j.db.Create(&rec).Error; err != nil {
		logs.Errorf("store: transfer journal write failed %s -> %s: %+v", sourceID, targetID, err)
	}
}

// RecentTransfers returns the latest transfer rows touching one wallet,
// newest first.
func (j *Journal) RecentTransfers(walletID string, limit int) ([]TransferRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []TransferRecord
	err := j.db.
		Where("source_id = ? OR target_id = ?", walletID, walletID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query transfer journal")
	}
	return rows, nil
}

// RecentEvents returns the latest rows for one wallet, newest first.
func (j *Journal) RecentEvents(walletID string, limit int) ([]TradeEventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []TradeEventRecord
	err := j.db.
		Where("wallet_id = ?", walletID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query journal")
	}
	return rows, nil
}

// Close releases the connection pool.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
