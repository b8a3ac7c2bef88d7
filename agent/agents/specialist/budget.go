package specialist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/saborai/saborai/agent/contract"
)

var (
	// "R$60", "R$ 59,90", "$45", "até 60 reais", "60-unit budget"
	budgetPattern = regexp.MustCompile(`(?i)(?:r\$|us\$|\$)\s*(\d+(?:[.,]\d{1,2})?)|(\d+(?:[.,]\d{1,2})?)\s*(?:reais|-?\s*unit)`)
	pricePattern  = regexp.MustCompile(`(?i)(?:r\$|us\$|\$)\s*(\d+(?:[.,]\d{1,2})?)`)
)

// budgetGuard short-circuits the recommendation agent when the query states a
// budget and every priced item in the context already exceeds it. In that
// case no combination can fit, so an explicit infeasibility answer is
// returned instead of letting the model fabricate one. Anything ambiguous
// falls through to the model.
func budgetGuard(req contractx.EvaluateRequest) (string, bool) {
	budget, ok := parseBudget(req.Query)
	if !ok {
		return "", false
	}

	cheapest, ok := cheapestPrice(req.Context)
	if !ok {
		return "", false
	}

	if cheapest > budget {
		return fmt.Sprintf(
			"Não é possível montar uma combinação dentro do orçamento de R$%s: "+
				"o item mais barato do cardápio custa R$%s. "+
				"Considere aumentar o orçamento ou pedir sugestões sem limite de valor.",
			formatAmount(budget), formatAmount(cheapest),
		), true
	}
	return "", false
}

func parseBudget(query string) (float64, bool) {
	m := budgetPattern.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	return parseAmount(raw)
}

func cheapestPrice(menuContext string) (float64, bool) {
	matches := pricePattern.FindAllStringSubmatch(menuContext, -1)
	if len(matches) == 0 {
		return 0, false
	}
	min := 0.0
	found := false
	for _, m := range matches {
		v, ok := parseAmount(m[1])
		if !ok {
			continue
		}
		if !found || v < min {
			min = v
			found = true
		}
	}
	return min, found
}

func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return strings.ReplaceAll(s, ".", ",")
}
