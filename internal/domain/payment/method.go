package payment

import (
	"fmt"
	"strings"
	"unicode"
)

// Method is the credential shape a transaction is paid with. Variants share
// the state machine and differ only in what they validate and how they render.
type Method interface {
	Label() string
	// Validate checks the credentials; nil means they are acceptable.
	Validate() *Violation
	Details() string
	IDPrefix() string
	DefaultRates() Rates
	Fee(amount float64) float64
	// Redirect reports whether the payer authenticates with the provider and
	// the transaction carries an access token.
	Redirect() bool
}

// Rates are the approval probabilities of the simulated provider.
type Rates struct {
	Authorize float64
	Settle    float64
}

type Card struct {
	Number string
	CVV    string
	Expiry string
	Holder string
}

func (Card) Label() string    { return "card" }
func (Card) IDPrefix() string { return "TXN_" }
func (Card) Redirect() bool   { return false }

func (Card) DefaultRates() Rates { return Rates{Authorize: 0.95, Settle: 0.98} }

func (Card) Fee(float64) float64 { return 0 }

func (c Card) Validate() *Violation {
	number := c.normalizedNumber()
	switch {
	case len(number) < 13 || len(number) > 19 || !digitsOnly(number):
		return &Violation{Code: CodeInvalidCardData, Field: "number", Reason: "card number must have 13 to 19 digits"}
	case len(c.CVV) < 3 || len(c.CVV) > 4 || !digitsOnly(c.CVV):
		return &Violation{Code: CodeInvalidCardData, Field: "cvv", Reason: "cvv must have 3 or 4 digits"}
	case strings.TrimSpace(c.Expiry) == "":
		return &Violation{Code: CodeInvalidCardData, Field: "expiry", Reason: "expiry date is required"}
	case strings.TrimSpace(c.Holder) == "":
		return &Violation{Code: CodeInvalidCardData, Field: "holder", Reason: "card holder is required"}
	}
	return nil
}

func (c Card) Details() string {
	return fmt.Sprintf("Card payment - %s (%s, exp %s)", c.Masked(), c.Holder, c.Expiry)
}

// Masked keeps the first and last four digits.
func (c Card) Masked() string {
	n := c.normalizedNumber()
	if len(n) < 8 {
		return "****"
	}
	return n[:4] + "****" + n[len(n)-4:]
}

func (c Card) normalizedNumber() string {
	return strings.NewReplacer(" ", "", "-", "").Replace(c.Number)
}

// Wallet pays through a redirect provider account.
type Wallet struct {
	Account string
}

const (
	walletFeeRate  = 0.029
	walletFeeFixed = 0.30
)

func (Wallet) Label() string    { return "wallet" }
func (Wallet) IDPrefix() string { return "WAL_" }
func (Wallet) Redirect() bool   { return true }

func (Wallet) DefaultRates() Rates { return Rates{Authorize: 0.97, Settle: 0.99} }

// Fee is the provider commission: 2.9% plus a fixed 0.30.
func (Wallet) Fee(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return amount*walletFeeRate + walletFeeFixed
}

func (w Wallet) Validate() *Violation {
	a := strings.TrimSpace(w.Account)
	if len(a) <= 5 || !strings.Contains(a, "@") || !strings.Contains(a, ".") {
		return &Violation{Code: CodeInvalidAccount, Field: "account", Reason: "account must be a valid e-mail address"}
	}
	return nil
}

func (w Wallet) Details() string { return "Wallet payment - " + w.Account }

// Total is amount plus the method fee.
func Total(m Method, amount float64) float64 { return amount + m.Fee(amount) }

func digitsOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
