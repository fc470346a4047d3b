package workflow

import (
	"strconv"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// Control actions handled by the order engine
const (
	ActionDiscover       = "discover"
	ActionCapability     = "capability"
	ActionSelectProvider = "select_provider"
	ActionViewProfile    = "view_profile"
	ActionMode           = "mode"
	ActionBulk           = "bulk"
	ActionPayment        = "payment"
	ActionRate           = "rate"
	ActionToggleActive   = "toggle_active"
	ActionRegister       = "register"
	ActionEditProfile    = "edit_profile"
	ActionSetCapability  = "set_capability"
	ActionSupportReply   = "support_reply"
)

// Control arguments
const (
	ArgSession    = "sid"
	ArgDocument   = "doc"
	ArgMode       = "mode"
	ArgMethod     = "method"
	ArgStars      = "stars"
	ArgProvider   = "provider"
	ArgCapability = "cap"
	ArgFilter     = "filter"
	ArgActive     = "active"
	ArgField      = "field"
	ArgUser       = "user"
)

// Editable profile fields
const (
	FieldRoom        = "room"
	FieldRates       = "rates"
	FieldDescription = "description"
	FieldCard        = "card"
	FieldCapability  = "capability"
)

// Discovery filters and the bulk "choose individually" answer
const (
	FilterAny        = "any"
	FilterPick       = "pick"
	BulkIndividually = "individual"
)

// Commands understood in chat, without the leading slash
const (
	CommandStart    = "start"
	CommandHelp     = "help"
	CommandPrint    = "print"
	CommandReset    = "reset"
	CommandCancel   = "cancel"
	CommandStatus   = "status"
	CommandProfile  = "profile"
	CommandRegister = "register"
	CommandSupport  = "print_support"
)

func control(action string, args ...string) port.Control {
	c := port.Control{Action: action, Args: make(map[string]string, len(args)/2)}
	for i := 0; i+1 < len(args); i += 2 {
		c.Args[args[i]] = args[i+1]
	}
	return c
}

func button(label string, c port.Control) port.Button {
	return port.Button{Label: label, Style: port.ButtonDefault, Control: c}
}

func primary(label string, c port.Control) port.Button {
	return port.Button{Label: label, Style: port.ButtonPrimary, Control: c}
}

// modeButtons are the per-document choice; prefix tells rows apart when
// several documents are listed in one message
func modeButtons(s *entity.Session, index int, prefix string) []port.Button {
	doc := strconv.Itoa(index)
	return []port.Button{
		button(prefix+"Black & white", control(ActionMode, ArgSession, s.Nonce, ArgDocument, doc, ArgMode, string(pricing.ModeMonochrome))),
		button(prefix+"Color", control(ActionMode, ArgSession, s.Nonce, ArgDocument, doc, ArgMode, string(pricing.ModeColor))),
	}
}

func bulkButtons(s *entity.Session) [][]port.Button {
	return [][]port.Button{
		{
			button("All black & white", control(ActionBulk, ArgSession, s.Nonce, ArgMode, string(pricing.ModeMonochrome))),
			button("All color", control(ActionBulk, ArgSession, s.Nonce, ArgMode, string(pricing.ModeColor))),
		},
		{button("Choose individually", control(ActionBulk, ArgSession, s.Nonce, ArgMode, BulkIndividually))},
	}
}

func paymentButtons(s *entity.Session) [][]port.Button {
	return [][]port.Button{{
		button("Card transfer", control(ActionPayment, ArgSession, s.Nonce, ArgMethod, string(entity.PaymentCard))),
		button("Cash", control(ActionPayment, ArgSession, s.Nonce, ArgMethod, string(entity.PaymentCash))),
	}}
}

func ratingButtons(s *entity.Session) [][]port.Button {
	row := make([]port.Button, 0, entity.MaxRating)
	for stars := entity.MinRating; stars <= entity.MaxRating; stars++ {
		n := strconv.Itoa(stars)
		row = append(row, button(n+"★", control(ActionRate, ArgSession, s.Nonce, ArgStars, n)))
	}
	return [][]port.Button{row}
}

func discoveryButtons() [][]port.Button {
	return [][]port.Button{{
		button("Any printer", control(ActionDiscover, ArgFilter, FilterAny)),
		button("Choose printer type", control(ActionDiscover, ArgFilter, FilterPick)),
	}}
}

func capabilityButtons() [][]port.Button {
	rows := make([][]port.Button, 0, len(entity.Capabilities))
	for _, c := range entity.Capabilities {
		rows = append(rows, []port.Button{button(c.Label(), control(ActionCapability, ArgCapability, string(c)))})
	}
	return rows
}

func providerButtons(p entity.ProviderSummary) []port.Button {
	return []port.Button{
		primary("Select "+p.DisplayName, control(ActionSelectProvider, ArgProvider, p.ID)),
		button("Profile", control(ActionViewProfile, ArgProvider, p.ID)),
	}
}

func toggleButton(active bool) [][]port.Button {
	if active {
		return [][]port.Button{{button("Go offline", control(ActionToggleActive, ArgActive, "false"))}}
	}
	return [][]port.Button{{primary("Go online", control(ActionToggleActive, ArgActive, "true"))}}
}

func menuButtons() [][]port.Button {
	return [][]port.Button{{
		primary("I need to print", control(ActionDiscover)),
		button("I print", control(ActionRegister)),
	}}
}

// printerButtons answer "which printer do you have" during registration and
// profile editing
func printerButtons() [][]port.Button {
	rows := make([][]port.Button, 0, len(entity.Capabilities))
	for _, c := range entity.Capabilities {
		rows = append(rows, []port.Button{button(c.Label(), control(ActionSetCapability, ArgCapability, string(c)))})
	}
	return rows
}

func profileButtons() [][]port.Button {
	edit := func(label, field string) port.Button {
		return button(label, control(ActionEditProfile, ArgField, field))
	}
	return [][]port.Button{
		{edit("Change room", FieldRoom), edit("Change prices", FieldRates)},
		{edit("Change description", FieldDescription), edit("Change card", FieldCard)},
		{edit("Change printer type", FieldCapability)},
	}
}

func supportReplyButton(userID string) [][]port.Button {
	return [][]port.Button{{primary("Reply", control(ActionSupportReply, ArgUser, userID))}}
}
