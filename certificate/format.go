package certificate

import "fmt"

// Format renders a human-readable summary of the certificate, grounded on
// cq_certificate_format.
func (c *Certificate) Format() string {
	v := c.Version()
	magic := c.MagicBytes()
	formatName := "Q16.16"
	if c.ScopeFormat() == FormatQ8_24 {
		formatName = "Q8.24"
	}
	bnFolded := "No"
	if c.BNFoldingStatus() {
		bnFolded = "Yes"
	}
	integrity := "INVALID"
	if c.VerifyIntegrity() {
		integrity = "VALID"
	}
	satisfied := "NO"
	if c.BoundsSatisfied() {
		satisfied = "YES"
	}

	return fmt.Sprintf(
		"=== CQ Certificate ===\n"+
			"Magic: %s\n"+
			"Version: %d.%d.%d.%d\n"+
			"Timestamp: %d\n"+
			"Format: %s\n"+
			"BN Folded: %s\n"+
			"Entry Error (eps0): %.6e\n"+
			"Total Error (eps_total): %.6e\n"+
			"Measured Error (eps_max): %.6e\n"+
			"Bounds Satisfied: %s\n"+
			"Layers: %d\n"+
			"Parameters: %d\n"+
			"Integrity: %s\n",
		string(magic[:]),
		v[0], v[1], v[2], v[3],
		c.Timestamp(),
		formatName,
		bnFolded,
		c.Epsilon0Claimed(),
		c.EpsilonTotalClaimed(),
		c.EpsilonMaxMeasured(),
		satisfied,
		c.TargetLayerCount(),
		c.TargetParamCount(),
		integrity,
	)
}
