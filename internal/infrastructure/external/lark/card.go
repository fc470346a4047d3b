package lark

import (
	"github.com/garyjia/dorm-print/internal/application/port"
)

// ValueKeyAction is the button value entry holding the control action.
// The remaining entries are the control arguments.
const ValueKeyAction = "action"

type card struct {
	Config   cardConfig    `json:"config"`
	Elements []interface{} `json:"elements"`
}

type cardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardDiv struct {
	Tag  string   `json:"tag"`
	Text cardText `json:"text"`
}

type cardAction struct {
	Tag     string       `json:"tag"`
	Actions []cardButton `json:"actions"`
}

type cardButton struct {
	Tag   string            `json:"tag"`
	Text  cardText          `json:"text"`
	Type  string            `json:"type"`
	Value map[string]string `json:"value"`
}

// buildCard renders a message with buttons as an interactive card.
// Each button row becomes one action block.
func buildCard(msg port.OutboundMessage) card {
	c := card{Config: cardConfig{WideScreenMode: true}}
	if msg.Text != "" {
		c.Elements = append(c.Elements, cardDiv{
			Tag:  "div",
			Text: cardText{Tag: "lark_md", Content: msg.Text},
		})
	}

	for _, row := range msg.Buttons {
		if len(row) == 0 {
			continue
		}
		block := cardAction{Tag: "action"}
		for _, b := range row {
			block.Actions = append(block.Actions, cardButton{
				Tag:   "button",
				Text:  cardText{Tag: "plain_text", Content: b.Label},
				Type:  buttonType(b.Style),
				Value: controlValue(b.Control),
			})
		}
		c.Elements = append(c.Elements, block)
	}
	return c
}

func buttonType(style port.ButtonStyle) string {
	switch style {
	case port.ButtonPrimary, port.ButtonDanger:
		return string(style)
	default:
		return string(port.ButtonDefault)
	}
}

func controlValue(c port.Control) map[string]string {
	value := make(map[string]string, len(c.Args)+1)
	for k, v := range c.Args {
		value[k] = v
	}
	value[ValueKeyAction] = c.Action
	return value
}

// ControlFromValue decodes the value echoed back by a button press.
// It reports false when the value carries no action.
func ControlFromValue(value map[string]interface{}) (port.Control, bool) {
	action, _ := value[ValueKeyAction].(string)
	if action == "" {
		return port.Control{}, false
	}

	args := make(map[string]string, len(value))
	for k, v := range value {
		if k == ValueKeyAction {
			continue
		}
		if s, ok := v.(string); ok {
			args[k] = s
		}
	}
	return port.Control{Action: action, Args: args}, true
}

// Mention renders a user reference inside card markdown
func Mention(openID string) string {
	return "<at id=" + openID + "></at>"
}
