package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccountKind discriminates the Account variants. It is fixed at creation.
type AccountKind string

const (
	KindBusiness        AccountKind = "BUSINESS"
	KindServiceProvider AccountKind = "SERVICE_PROVIDER"
)

// ParseAccountKind accepts the canonical kinds plus the legacy "SERVICEPROVIDER"
// spelling still sent by older mobile clients.
func ParseAccountKind(s string) (AccountKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindBusiness):
		return KindBusiness, nil
	case string(KindServiceProvider), "SERVICEPROVIDER":
		return KindServiceProvider, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnrecognisedAccountKind, s)
}

// NormalizeUsername is the form usernames are stored and looked up in.
// Surrounding whitespace is dropped; case is kept.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

// Trade is the skill category attached to a service provider.
type Trade string

const (
	TradeBarista     Trade = "BARISTA"
	TradeBartender   Trade = "BARTENDER"
	TradeChef        Trade = "CHEF"
	TradeConcierge   Trade = "CONCIERGE"
	TradeFOH         Trade = "FOH"
	TradeMechanic    Trade = "MECHANIC"
	TradePlumber     Trade = "PLUMBER"
	TradeElectrician Trade = "ELECTRICIAN"
	TradeHVACTech    Trade = "HVACTECH"
)

// Trades lists every supported trade in display order.
var Trades = []Trade{
	TradeBarista, TradeBartender, TradeChef, TradeConcierge, TradeFOH,
	TradeMechanic, TradePlumber, TradeElectrician, TradeHVACTech,
}

// ParseTrade normalizes s and reports whether it names a known trade.
func ParseTrade(s string) (Trade, bool) {
	t := Trade(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Trades {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Tags returns the listing tag names a provider with this trade matches.
// The convention is one tag per trade, named after the trade.
func (t Trade) Tags() []string {
	return []string{NormalizeTagName(string(t))}
}

// Account is an authenticated marketplace identity. The set of variants is
// closed: only *BusinessAccount and *ServiceProviderAccount implement it.
type Account interface {
	Identity() *AccountBase
	Kind() AccountKind
	sealedAccount()
}

// AccountBase holds the fields shared by every account variant.
type AccountBase struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (b *AccountBase) Identity() *AccountBase { return b }

// BusinessAccount is an account owned by a registered business.
type BusinessAccount struct {
	AccountBase
	ABN     string `json:"abn"`
	Address string `json:"address"`
}

func (*BusinessAccount) Kind() AccountKind { return KindBusiness }
func (*BusinessAccount) sealedAccount()    {}

// Profile exposes the business view: no names, no trade.
func (a *BusinessAccount) Profile() Profile {
	return Profile{
		"username":     a.Username,
		"email":        a.Email,
		"phone_number": a.PhoneNumber,
		"abn":          a.ABN,
		"address":      a.Address,
	}
}

// ServiceProviderAccount is an account owned by an individual offering a trade.
type ServiceProviderAccount struct {
	AccountBase
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	Trade     Trade  `json:"trade"`
}

func (*ServiceProviderAccount) Kind() AccountKind { return KindServiceProvider }
func (*ServiceProviderAccount) sealedAccount()    {}

func (a *ServiceProviderAccount) Profile() Profile {
	return Profile{
		"username":     a.Username,
		"email":        a.Email,
		"phone_number": a.PhoneNumber,
		"first_name":   a.FirstName,
		"last_name":    a.LastName,
		"address":      a.Address,
		"trade":        string(a.Trade),
	}
}

// Profile is the role-appropriate public projection of an account.
type Profile map[string]string

// Profiler is implemented by variants that know their own public view.
type Profiler interface {
	Profile() Profile
}

// ProjectProfile dispatches on the account's capability rather than its kind.
// Variants without a Profile method expose only username and email.
func ProjectProfile(acc Account) Profile {
	if p, ok := acc.(Profiler); ok {
		return p.Profile()
	}
	base := acc.Identity()
	return Profile{"username": base.Username, "email": base.Email}
}

// Registration is the raw data submitted to create an account. Fields that do
// not apply to the requested kind are ignored.
type Registration struct {
	Username    string
	Email       string
	PhoneNumber string
	Password    string

	ABN     string
	Address string

	FirstName string
	LastName  string
	Trade     string
}
