// Package constants defines the supported mathematical constants with their
// display metadata and known digit prefixes used for startup identification.
package constants

// Constant describes one supported mathematical constant.
type Constant struct {
	ID          string
	Name        string
	Symbol      string
	Description string
	KnownPrefix string // first 50 digits, formatting stripped
	Filename    string // default canonical file name under the data dir
}

// All lists every supported constant in stable order.
var All = []Constant{
	{
		ID:          "catalan",
		Name:        "Catalan",
		Symbol:      "G",
		Description: "Catalan constant",
		KnownPrefix: "91596559417721901505460351493238411077414937428167",
		Filename:    "catalan_digits.txt",
	},
	{
		ID:          "e",
		Name:        "Euler's number",
		Symbol:      "e",
		Description: "Base of natural logarithm",
		KnownPrefix: "27182818284590452353602874713526624977572470936999",
		Filename:    "e_digits.txt",
	},
	{
		ID:          "eulers",
		Name:        "Euler-Mascheroni",
		Symbol:      "γ",
		Description: "Euler-Mascheroni constant",
		KnownPrefix: "57721566490153286060651209008240243104215933593992",
		Filename:    "eulers_digits.txt",
	},
	{
		ID:          "lemniscate",
		Name:        "Lemniscate",
		Symbol:      "ϖ",
		Description: "Lemniscate constant",
		KnownPrefix: "26205830904531276522748574649951968533133071993113",
		Filename:    "lemniscate_digits.txt",
	},
	{
		ID:          "log10",
		Name:        "Natural log of 10",
		Symbol:      "ln(10)",
		Description: "Natural logarithm of 10",
		KnownPrefix: "23025850929940456840179914546843642076011014886287",
		Filename:    "log10_digits.txt",
	},
	{
		ID:          "log2",
		Name:        "Natural log of 2",
		Symbol:      "ln(2)",
		Description: "Natural logarithm of 2",
		KnownPrefix: "69314718055994530941723212145817656807550013436025",
		Filename:    "log2_digits.txt",
	},
	{
		ID:          "log3",
		Name:        "Natural log of 3",
		Symbol:      "ln(3)",
		Description: "Natural logarithm of 3",
		KnownPrefix: "10986122886681096913952452369225257046474905578227",
		Filename:    "log3_digits.txt",
	},
	{
		ID:          "phi",
		Name:        "Golden Ratio",
		Symbol:      "φ",
		Description: "(1 + √5) / 2",
		KnownPrefix: "16180339887498948482045868343656381177203091798057",
		Filename:    "phi_digits.txt",
	},
	{
		ID:          "pi",
		Name:        "Pi",
		Symbol:      "π",
		Description: "Ratio of circumference to diameter",
		KnownPrefix: "31415926535897932384626433832795028841971693993751",
		Filename:    "pi_digits.txt",
	},
	{
		ID:          "sqrt2",
		Name:        "Square Root of 2",
		Symbol:      "√2",
		Description: "√2",
		KnownPrefix: "14142135623730950488016887242096980785696718753769",
		Filename:    "sqrt2_digits.txt",
	},
	{
		ID:          "sqrt3",
		Name:        "Square Root of 3",
		Symbol:      "√3",
		Description: "√3",
		KnownPrefix: "17320508075688772935274463415058723669428052538103",
		Filename:    "sqrt3_digits.txt",
	},
	{
		ID:          "zeta3",
		Name:        "Apéry's constant",
		Symbol:      "ζ(3)",
		Description: "Riemann zeta function ζ(3)",
		KnownPrefix: "12020569031595942853997381615114499907649862923404",
		Filename:    "zeta3_digits.txt",
	},
}

var byID = func() map[string]Constant {
	m := make(map[string]Constant, len(All))
	for _, c := range All {
		m[c.ID] = c
	}
	return m
}()

// Lookup returns the constant definition for id.
func Lookup(id string) (Constant, bool) {
	c, ok := byID[id]
	return c, ok
}

// DisplayName returns "Name (Symbol)" for API responses, or the raw id when
// the constant is unknown.
func DisplayName(id string) string {
	c, ok := byID[id]
	if !ok {
		return id
	}
	return c.Name + " (" + c.Symbol + ")"
}

// Identify matches a cleaned 50-digit prefix against the known constants.
// It returns the matching constant, if any; identification is informational
// only and unknown prefixes are not an error.
func Identify(prefix string) (Constant, bool) {
	for _, c := range All {
		if prefix == c.KnownPrefix {
			return c, true
		}
	}
	return Constant{}, false
}
