package sim

import (
	"time"

	"finsim/internal/domain"
)

// Ledger tracks cash, share holdings, and the append-only transaction log
// for one session. Trades are always a single share, and a trade that would
// break an invariant (cash below zero, selling with no holdings) is rejected
// without error: the caller gets ok=false and the ledger is untouched.
//
// Ledger is not safe for concurrent use; the owning Session serializes
// access under its own lock.
type Ledger struct {
	cash         float64
	holdings     map[string]int
	transactions []domain.Transaction
}

func NewLedger(startCash float64) *Ledger {
	return &Ledger{
		cash:     startCash,
		holdings: make(map[string]int),
	}
}

// Buy purchases one share at price. Rejected if price exceeds available cash.
func (l *Ledger) Buy(symbol string, price float64, dayIndex int, date string) (domain.Transaction, bool) {
	if price > l.cash {
		return domain.Transaction{}, false
	}
	l.cash -= price
	l.holdings[symbol]++
	tx := domain.Transaction{
		Type:      domain.TxBuy,
		Symbol:    symbol,
		Price:     price,
		Shares:    1,
		Timestamp: time.Now(),
		DayIndex:  dayIndex,
		Date:      date,
	}
	l.transactions = append(l.transactions, tx)
	return tx, true
}

// Sell disposes of one share at price. Rejected if no shares are held.
func (l *Ledger) Sell(symbol string, price float64, dayIndex int, date string) (domain.Transaction, bool) {
	if l.holdings[symbol] == 0 {
		return domain.Transaction{}, false
	}
	l.cash += price
	l.holdings[symbol]--
	tx := domain.Transaction{
		Type:      domain.TxSell,
		Symbol:    symbol,
		Price:     price,
		Shares:    1,
		Timestamp: time.Now(),
		DayIndex:  dayIndex,
		Date:      date,
	}
	l.transactions = append(l.transactions, tx)
	return tx, true
}

func (l *Ledger) Cash() float64 { return l.cash }

func (l *Ledger) Holdings(symbol string) int { return l.holdings[symbol] }

// Transactions returns a copy of the full transaction log in append order.
func (l *Ledger) Transactions() []domain.Transaction {
	out := make([]domain.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// TransactionsAt returns the transactions taken at exactly dayIndex.
func (l *Ledger) TransactionsAt(dayIndex int) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range l.transactions {
		if tx.DayIndex == dayIndex {
			out = append(out, tx)
		}
	}
	return out
}

// TransactionsThrough returns the transactions taken at or before dayIndex.
func (l *Ledger) TransactionsThrough(dayIndex int) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range l.transactions {
		if tx.DayIndex <= dayIndex {
			out = append(out, tx)
		}
	}
	return out
}
