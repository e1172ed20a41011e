package calc

// =============================================================================
// LEGISLATIVE ERA BOUNDARIES
// =============================================================================
// Commencement dates of the statutes that change which release rules apply.
// These are facts of law, not configuration: they never vary per run.

var (
	// CJACommencement is when the Criminal Justice Act 2003 release
	// provisions commenced. Offences committed before this date follow the
	// older release scheme.
	CJACommencement = NewDate(2005, 4, 4)

	// LASPOCommencement is when LASPO 2012 changed the determinate release
	// rules. Sentences imposed before this date, for offences before the
	// CJA date, follow the pre-CJA/LASPO rule family.
	LASPOCommencement = NewDate(2012, 12, 3)

	// ORACommencement is when the Offender Rehabilitation Act 2014
	// introduced licence periods for short sentences.
	ORACommencement = NewDate(2015, 2, 1)

	// PCSCCommencement is when the Police, Crime, Sentencing and Courts Act
	// 2022 provisions commenced (two-thirds parole eligibility for certain
	// sentences, full-term default terms for large fines, DTO changes).
	PCSCCommencement = NewDate(2022, 6, 28)
)

// fineFullTermThreshold is the fine amount at or above which a default term
// sentenced on or after the PCSC date is served in full.
const fineFullTermThreshold = 10_000_000
