// finsim-replay runs one simulation session in the terminal: it loads a
// synthetic series, plays it end to end at the chosen speed, executes
// scripted trades, and prints the final ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"finsim/internal/domain"
	"finsim/internal/fakestock"
	"finsim/internal/sim"
	"finsim/internal/util"
)

type scriptedAction struct {
	day int
	typ domain.TxType
}

func main() {
	symbol := flag.String("symbol", "INFY", "symbol to replay")
	days := flag.Int("days", 365, "calendar days of history")
	speed := flag.Int("speed", 100, "playback delay per day in ms")
	cash := flag.Float64("cash", 10000, "starting cash")
	actions := flag.String("actions", "", `scripted trades, e.g. "buy@10,sell@40"`)
	dataDir := flag.String("data-dir", "", "parquet cache directory (empty disables caching)")
	flag.Parse()

	logger := util.NewLogger("warn", "text")
	util.SetDefault(logger)

	script, err := parseActions(*actions)
	if err != nil {
		log.Fatalf("parsing -actions: %v", err)
	}

	source := fakestock.NewSource(*days, *dataDir, logger)
	manager := sim.NewManager(source, sim.Config{
		StartCash: *cash,
		Speed:     time.Duration(*speed) * time.Millisecond,
	}, logger)
	defer manager.CloseAll()

	session, err := manager.Open(context.Background(), strings.ToUpper(*symbol))
	if err != nil {
		log.Fatalf("opening session: %v", err)
	}

	states := session.Subscribe()
	session.Play()

	fmt.Printf("replaying %s: %d trading days at %dms/day\n\n",
		session.Symbol(), session.State().DayCount, *speed)

	done := make([]bool, len(script))
	for st := range states {
		for i, a := range script {
			if done[i] || a.day != st.DayIndex {
				continue
			}
			done[i] = true
			var ok bool
			if a.typ == domain.TxBuy {
				_, ok = session.Buy()
			} else {
				_, ok = session.Sell()
			}
			status := "ok"
			if !ok {
				status = "rejected"
			}
			fmt.Printf("day %3d  %-4s @ %8.2f  %s\n",
				st.DayIndex, a.typ, st.CurrentBar.CurrentPrice, status)
		}
		if !st.Playing && st.DayIndex == st.DayCount-1 {
			break
		}
	}
	session.Unsubscribe(states)

	printSummary(session)
}

func parseActions(s string) ([]scriptedAction, error) {
	if s == "" {
		return nil, nil
	}
	var out []scriptedAction
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		verb, dayStr, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("%q: want verb@day", part)
		}
		day, err := strconv.Atoi(dayStr)
		if err != nil || day < 0 {
			return nil, fmt.Errorf("%q: bad day index", part)
		}
		switch strings.ToLower(verb) {
		case "buy":
			out = append(out, scriptedAction{day: day, typ: domain.TxBuy})
		case "sell":
			out = append(out, scriptedAction{day: day, typ: domain.TxSell})
		default:
			return nil, fmt.Errorf("%q: verb must be buy or sell", part)
		}
	}
	return out, nil
}

func printSummary(session *sim.Session) {
	st := session.State()

	fmt.Printf("\n=== %s after %d days ===\n", st.Symbol, st.DayCount)
	fmt.Printf("cash:       %10.2f\n", st.Cash)
	fmt.Printf("shares:     %10d\n", st.Shares)
	fmt.Printf("position:   %10.2f\n", st.PortfolioValue)
	fmt.Printf("total:      %10.2f\n", st.TotalValue)

	txs := session.Transactions()
	if len(txs) == 0 {
		return
	}
	fmt.Printf("\ntransactions:\n")
	for _, tx := range txs {
		fmt.Printf("  day %3d  %-4s  1 @ %8.2f  (%s)\n", tx.DayIndex, tx.Type, tx.Price, tx.Date)
	}
}
