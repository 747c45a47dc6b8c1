package analysis

import "fmt"

// ============================================================================
// GLOSSARY — Human labels for the UCI student performance columns
// ============================================================================
// Used for chart titles, axis labels and console headings. Columns not
// listed fall back to their raw key.
// ============================================================================

type term struct {
	Label  string // "Final Grade"
	Axis   string // axis caption when it differs from Label
	Phrase string // how findings refer to the column in a sentence
}

var glossary = map[string]term{
	"school":     {Label: "School"},
	"sex":        {Label: "Sex"},
	"age":        {Label: "Age"},
	"address":    {Label: "Home Address Type"},
	"famsize":    {Label: "Family Size"},
	"Pstatus":    {Label: "Parents' Cohabitation Status"},
	"Medu":       {Label: "Mother's Education"},
	"Fedu":       {Label: "Father's Education"},
	"Mjob":       {Label: "Mother's Job", Phrase: "the mother's job"},
	"Fjob":       {Label: "Father's Job", Phrase: "the father's job"},
	"reason":     {Label: "Reason for Choosing School"},
	"guardian":   {Label: "Guardian"},
	"traveltime": {Label: "Travel Time"},
	"studytime":  {Label: "Study Time", Axis: "Study Time (1: <2h, 2: 2-5h, 3: 5-10h, 4: >10h)", Phrase: "study time"},
	"failures":   {Label: "Past Class Failures"},
	"schoolsup":  {Label: "Extra Educational Support"},
	"famsup":     {Label: "Family Educational Support"},
	"paid":       {Label: "Extra Paid Classes"},
	"activities": {Label: "Extra-curricular Activities"},
	"nursery":    {Label: "Attended Nursery School"},
	"higher":     {Label: "Wants Higher Education"},
	"internet":   {Label: "Home Internet Access", Axis: "Internet Access at Home", Phrase: "home internet access"},
	"romantic":   {Label: "In a Romantic Relationship"},
	"famrel":     {Label: "Family Relationship Quality"},
	"freetime":   {Label: "Free Time After School"},
	"goout":      {Label: "Going Out with Friends"},
	"Dalc":       {Label: "Workday Alcohol Consumption"},
	"Walc":       {Label: "Weekend Alcohol Consumption"},
	"health":     {Label: "Current Health Status"},
	"absences":   {Label: "School Absences"},
	"G1":         {Label: "First Period Grade", Phrase: "first period grade (G1)"},
	"G2":         {Label: "Second Period Grade", Phrase: "second period grade (G2)"},
	"G3":         {Label: "Final Grade", Phrase: "final grade (G3)"},
}

// label returns "Final Grade" for G3, or the key itself.
func label(key string) string {
	if t, ok := glossary[key]; ok {
		return t.Label
	}
	return key
}

// labelWithKey returns "Final Grade (G3)", or the key itself.
func labelWithKey(key string) string {
	if t, ok := glossary[key]; ok {
		return fmt.Sprintf("%s (%s)", t.Label, key)
	}
	return key
}

// axis returns the axis caption for a column.
func axis(key string) string {
	if t, ok := glossary[key]; ok && t.Axis != "" {
		return t.Axis
	}
	return label(key)
}

// phrase returns how a sentence refers to the column.
func phrase(key string) string {
	if t, ok := glossary[key]; ok && t.Phrase != "" {
		return t.Phrase
	}
	return "'" + key + "'"
}

// quoted returns "'G3' (Final Grade)" for console headings.
func quoted(key string) string {
	if t, ok := glossary[key]; ok {
		return fmt.Sprintf("'%s' (%s)", key, t.Label)
	}
	return "'" + key + "'"
}
