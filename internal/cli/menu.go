package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/futurebot/internal/domain"
	"github.com/betbot/futurebot/internal/services"
	"github.com/betbot/futurebot/pkg/sdk/binance"
)

var menuLog = logrus.WithField("component", "cli.menu")

const (
	msgGoodbye     = "Thank you for using the Trading Bot!"
	msgInterrupted = "Bot stopped by user"
	promptAgain    = "Place another order? (y/n): "
	bannerRule     = "============================================================"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // 红色
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // 绿色
	dryRunStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
)

// Trader is what the menu dispatches to. *services.TradingService satisfies it.
type Trader interface {
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, quantity decimal.Decimal) (*binance.Order, error)
	PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, quantity, price decimal.Decimal) (*binance.Order, error)
	PlaceStopLimitOrder(ctx context.Context, symbol string, side domain.Side, quantity, stopPrice, limitPrice decimal.Decimal) (*binance.Order, error)
	EnvironmentName() string
	DryRun() bool
}

type step int

const (
	stepType step = iota
	stepSymbol
	stepSide
	stepQuantity
	stepPrice
	stepStopPrice
	stepLimitPrice
	stepSubmitting
	stepAgain
	stepDone
)

// orderResultMsg carries the outcome of one dispatched order back to Update.
type orderResultMsg struct {
	order *binance.Order
	err   error
}

// Model is the interactive order wizard. One pass collects the order type,
// symbol, side, quantity and prices, submits the order, then asks whether to
// place another.
type Model struct {
	ctx    context.Context
	trader Trader
	log    *logrus.Entry

	step  step
	input string
	// errMsg is the inline error for the current prompt
	errMsg string

	typeChoice string
	orderType  domain.OrderType
	typeErr    error
	symbol     string
	side       domain.Side
	quantity   decimal.Decimal
	price      decimal.Decimal
	stopPrice  decimal.Decimal

	result    []string
	resultErr string

	farewell    string
	interrupted bool
}

// New builds the wizard at its first prompt.
func New(ctx context.Context, trader Trader) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	return Model{ctx: ctx, trader: trader, log: menuLog}
}

// Interrupted reports whether the user left with Ctrl-C.
func (m Model) Interrupted() bool { return m.interrupted }

// Farewell is the closing line shown when the wizard exits.
func (m Model) Farewell() string { return m.farewell }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.interrupted = true
			m.farewell = msgInterrupted
			m.step = stepDone
			return m, tea.Quit
		}
		if m.step == stepSubmitting || m.step == stepDone {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyBackspace:
			if r := []rune(m.input); len(r) > 0 {
				m.input = string(r[:len(r)-1])
			}
		case tea.KeySpace:
			m.input += " "
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		}
		return m, nil

	case orderResultMsg:
		if msg.err != nil {
			m.resultErr = msg.err.Error()
		} else if msg.order != nil {
			m.result = services.OrderDetailLines(msg.order, m.trader.DryRun())
		}
		m.step = stepAgain
		return m, nil
	}
	return m, nil
}

// submit consumes the typed line for the current step.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input)
	m.input = ""
	m.errMsg = ""

	switch m.step {
	case stepType:
		m.typeChoice = value
		m.orderType, m.typeErr = domain.ParseOrderTypeChoice(value)
		m.step = stepSymbol
	case stepSymbol:
		m.symbol = strings.ToUpper(value)
		m.step = stepSide
	case stepSide:
		m.side = domain.ParseSideChoice(value)
		m.step = stepQuantity
	case stepQuantity:
		qty, err := domain.ParseAmount("quantity", value)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.quantity = qty
		switch {
		case m.typeErr != nil, m.orderType == domain.OrderTypeMarket:
			return m.dispatch()
		case m.orderType == domain.OrderTypeLimit:
			m.step = stepPrice
		default:
			m.step = stepStopPrice
		}
	case stepPrice:
		price, err := domain.ParseAmount("limit price", value)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.price = price
		return m.dispatch()
	case stepStopPrice:
		stop, err := domain.ParseAmount("stop price", value)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.stopPrice = stop
		m.step = stepLimitPrice
	case stepLimitPrice:
		price, err := domain.ParseAmount("limit price", value)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.price = price
		return m.dispatch()
	case stepAgain:
		if strings.ToLower(value) == "y" {
			return m.reset(), nil
		}
		m.farewell = msgGoodbye
		m.step = stepDone
		return m, tea.Quit
	}
	return m, nil
}

// dispatch sends the collected order to the trader off the UI goroutine.
func (m Model) dispatch() (tea.Model, tea.Cmd) {
	if m.typeErr != nil {
		m.log.Error("Invalid order type selected")
		m.resultErr = m.typeErr.Error()
		m.step = stepAgain
		return m, nil
	}

	m.step = stepSubmitting
	ctx, trader := m.ctx, m.trader
	symbol, side, qty := m.symbol, m.side, m.quantity
	price, stop, typ := m.price, m.stopPrice, m.orderType

	return m, func() tea.Msg {
		var (
			order *binance.Order
			err   error
		)
		switch typ {
		case domain.OrderTypeMarket:
			order, err = trader.PlaceMarketOrder(ctx, symbol, side, qty)
		case domain.OrderTypeLimit:
			order, err = trader.PlaceLimitOrder(ctx, symbol, side, qty, price)
		case domain.OrderTypeStopLimit:
			order, err = trader.PlaceStopLimitOrder(ctx, symbol, side, qty, stop, price)
		}
		return orderResultMsg{order: order, err: err}
	}
}

func (m Model) reset() Model {
	return Model{ctx: m.ctx, trader: m.trader, log: m.log}
}

func (m Model) prompt() string {
	switch m.step {
	case stepType:
		return "Enter choice (1-3): "
	case stepSymbol:
		return "Enter symbol (e.g., BTCUSDT): "
	case stepSide:
		return "Enter choice (1-2): "
	case stepQuantity:
		return "Enter quantity: "
	case stepPrice, stepLimitPrice:
		return "Enter limit price: "
	case stepStopPrice:
		return "Enter stop price: "
	case stepAgain:
		return promptAgain
	}
	return ""
}

func (m Model) View() string {
	if m.step == stepDone {
		return m.farewell + "\n"
	}

	var b strings.Builder
	env := "TESTNET"
	if m.trader != nil {
		env = m.trader.EnvironmentName()
	}
	b.WriteString(bannerRule + "\n")
	b.WriteString(headerStyle.Render("BINANCE FUTURES TRADING BOT - "+env) + "\n")
	b.WriteString(bannerRule + "\n")
	if m.trader != nil && m.trader.DryRun() {
		b.WriteString(dryRunStyle.Render("DRY RUN: orders are validated, not executed") + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("Select Order Type:") + "\n")
	b.WriteString("1. Market Order\n2. Limit Order\n3. Stop-Limit Order\n")
	m.writeAnswer(&b, stepType, "Enter choice (1-3): ", m.typeChoice)
	m.writeAnswer(&b, stepSymbol, "Enter symbol (e.g., BTCUSDT): ", m.symbol)
	if m.step >= stepSide {
		b.WriteString("\n" + titleStyle.Render("Select Side:") + "\n")
		b.WriteString("1. BUY\n2. SELL\n")
	}
	m.writeAnswer(&b, stepSide, "Enter choice (1-2): ", string(m.side))
	m.writeAnswer(&b, stepQuantity, "Enter quantity: ", m.quantity.String())
	switch m.orderType {
	case domain.OrderTypeLimit:
		m.writeAnswer(&b, stepPrice, "Enter limit price: ", m.price.String())
	case domain.OrderTypeStopLimit:
		m.writeAnswer(&b, stepStopPrice, "Enter stop price: ", m.stopPrice.String())
		m.writeAnswer(&b, stepLimitPrice, "Enter limit price: ", m.price.String())
	}

	switch m.step {
	case stepSubmitting:
		b.WriteString("\nSubmitting order...\n")
	case stepAgain:
		b.WriteString("\n")
		for _, line := range m.result {
			b.WriteString(okStyle.Render(line) + "\n")
		}
		if m.resultErr != "" {
			b.WriteString(errorStyle.Render("Error: "+m.resultErr) + "\n")
		}
	}

	if p := m.prompt(); p != "" && m.step != stepSubmitting {
		b.WriteString("\n" + p + m.input + "█\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString(answerStyle.Render("ctrl+c to quit") + "\n")
	return b.String()
}

// writeAnswer echoes an answered prompt once the wizard has moved past it.
func (m Model) writeAnswer(b *strings.Builder, s step, label, value string) {
	if m.step <= s || m.step == stepDone {
		return
	}
	b.WriteString(fmt.Sprintf("%s%s\n", label, answerStyle.Render(value)))
}
