package eos

// Date is a calendar date decoded from a flight catalog entry.
type Date struct {
	Year  int
	Month int
	Day   int
}

// julianToDate converts a Julian day number to a Gregorian calendar date
// using the standard integer algorithm.
func julianToDate(julian uint32) Date {
	a := int(julian) + 32044
	b := (4*a + 3) / 146097
	c := a - (146097*b)/4
	d := (4*c + 3) / 1461
	e := c - (1461*d)/4
	m := (5*e + 2) / 153

	return Date{
		Day:   e - (153*m+2)/5 + 1,
		Month: m + 3 - 12*(m/10),
		Year:  100*b + d - 4800 + m/10,
	}
}
