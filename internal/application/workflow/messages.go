package workflow

import (
	"fmt"
	"strings"

	"github.com/garyjia/dorm-print/internal/application/dispatch"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
	domainwf "github.com/garyjia/dorm-print/internal/domain/workflow"
)

const helpText = `How it works:
1. /print and pick a provider
2. Send your PDF documents
3. Choose black & white or color for each document
4. Tell the provider about any special requirements
5. Choose card transfer or cash

/reset clears your current order at any time.
/print_support sends a question to support.

Have a printer? /register to start taking orders.
Providers: /status toggles availability, /profile shows and edits your profile.`

const menuText = "Hi! I connect people who need something printed with neighbours who have a printer."

// phaseHints tell the requester what the current step expects
var phaseHints = map[domainwf.State]string{
	domainwf.StateIdle:                   "Start with /print to choose a provider.",
	domainwf.StateProviderSelected:       "Send the PDF documents you want printed.",
	domainwf.StateCollectingDocuments:    "Send the PDF documents you want printed.",
	domainwf.StateChoosingPrintMode:      "Choose a print mode for your documents using the buttons above.",
	domainwf.StateCollectingRequirements: "Write your requirements for the order, or \"none\".",
	domainwf.StateChoosingPayment:        "Choose a payment method using the buttons above.",
	domainwf.StateCashAmount:             "Enter the amount of cash you will hand over.",
	domainwf.StateDispatched:             "Your order is with the provider. Wait for their answer or /reset.",
	domainwf.StateRatingPending:          "Rate the order with the buttons above, then write a comment.",
}

func phaseHint(s domainwf.State) string {
	if hint, ok := phaseHints[s]; ok {
		return hint
	}
	return phaseHints[domainwf.StateIdle]
}

func ratesText(r pricing.RateCard) string {
	return fmt.Sprintf("black & white %s, color %s per page", pricing.Format(r.Monochrome), pricing.Format(r.Color))
}

func providerCard(p entity.ProviderSummary) string {
	return fmt.Sprintf("%s, room %s\n%s\nPrinter: %s", p.DisplayName, p.Room, ratesText(p.Rates), p.Capability.Label())
}

func ratingText(r *entity.RatingSummary) string {
	if r == nil || r.Count == 0 {
		return "no reviews yet"
	}
	return fmt.Sprintf("%.1f★ from %d reviews", r.Average, r.Count)
}

func profileText(p *entity.Provider, rating *entity.RatingSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s, room %s\n", p.DisplayName, p.Room)
	fmt.Fprintf(&b, "Rates: %s\n", ratesText(p.Rates))
	fmt.Fprintf(&b, "Printer: %s\n", p.Capability.Label())
	fmt.Fprintf(&b, "Rating: %s", ratingText(rating))
	if p.Description != "" {
		fmt.Fprintf(&b, "\n\n%s", p.Description)
	}
	return b.String()
}

func statsText(st *entity.ProviderStats) string {
	if st == nil || st.Orders == 0 {
		return "No completed orders yet."
	}
	return fmt.Sprintf("Completed orders: %d\nPages printed: %d\nEarned: %s", st.Orders, st.Pages, pricing.Format(st.Earnings))
}

func totalsText(t pricing.Totals) string {
	return fmt.Sprintf("Total so far: %d pages, %s", t.Pages, pricing.Format(t.Price))
}

func documentLine(d entity.DocumentEntry) string {
	line := fmt.Sprintf("%s: %d pages, %s", d.DisplayName, d.PageCount, dispatch.ModeLabel(d.PrintMode))
	if d.LineCost != nil {
		line += ", " + pricing.Format(*d.LineCost)
	}
	return line
}

func requirementsPrompt(s *entity.Session) string {
	return fmt.Sprintf("All documents are priced.\n%s\n\nAny special requirements for the provider? Write them, or \"none\".", totalsText(s.Totals))
}
