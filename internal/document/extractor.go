package document

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractedFields are the structured values pulled out of OCR text.
type ExtractedFields struct {
	CNIC       string `json:"cnic,omitempty"`
	Name       string `json:"name,omitempty"`
	FatherName string `json:"father_name,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	DateOfIssue string `json:"date_of_issue,omitempty"`
	DateOfExpiry string `json:"date_of_expiry,omitempty"`
	Address    string `json:"address,omitempty"`
	Gender     string `json:"gender,omitempty"`
}

var (
	cnicFormatted = regexp.MustCompile(`\d{5}-\d{7}-\d`)
	cnicBare      = regexp.MustCompile(`\b\d{13}\b`)
	// Identity card labels appear in English or Urdu.
	nameLabel   = regexp.MustCompile(`(?i)(?:name|نام)\s*[:：]?\s*(.+)`)
	fatherLabel = regexp.MustCompile(`(?i)(?:father(?:'s)?\s*name|والد)\s*[:：]?\s*(.+)`)
	datePattern = regexp.MustCompile(`(\d{2})[/\-.](\d{2})[/\-.](\d{4})`)
	genderToken = regexp.MustCompile(`(?i)\b(female|male|f|m)\b`)
	otherLabel  = regexp.MustCompile(`(?i)name|father|date|cnic|والد|نام`)
)

// Extract pulls identity fields from OCR'd card text, line by line. The
// layout varies between card generations and scan quality, so every field
// is best-effort; Confidence scores what was actually recovered.
func Extract(lines []string) *ExtractedFields {
	out := &ExtractedFields{}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if out.CNIC == "" {
			if m := cnicFormatted.FindString(line); m != "" {
				out.CNIC = m
			} else if m := cnicBare.FindString(line); m != "" {
				out.CNIC = m[:5] + "-" + m[5:12] + "-" + m[12:]
			}
		}

		lower := strings.ToLower(line)
		// Father must be checked first: "Father Name" also matches the name
		// label.
		if out.FatherName == "" {
			if m := fatherLabel.FindStringSubmatch(line); m != nil {
				out.FatherName = cleanValue(m[1])
				continue
			}
		}
		if out.Name == "" && !strings.Contains(lower, "father") && !strings.Contains(line, "والد") {
			if m := nameLabel.FindStringSubmatch(line); m != nil {
				out.Name = cleanValue(m[1])
				continue
			}
		}

		if m := datePattern.FindStringSubmatch(line); m != nil {
			iso := fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1])
			switch {
			case out.DateOfBirth == "" && (strings.Contains(lower, "birth") || strings.Contains(line, "پیدائش")):
				out.DateOfBirth = iso
			case out.DateOfIssue == "" && (strings.Contains(lower, "issue") || strings.Contains(line, "جاری")):
				out.DateOfIssue = iso
			case out.DateOfExpiry == "" && (strings.Contains(lower, "expiry") || strings.Contains(line, "ختم")):
				out.DateOfExpiry = iso
			}
		}

		if out.Gender == "" {
			// Word boundaries in the regexp are ASCII-only, so the Urdu
			// tokens are matched as plain substrings.
			switch {
			case strings.Contains(line, "عورت"):
				out.Gender = "female"
			case strings.Contains(line, "مرد"):
				out.Gender = "male"
			default:
				if m := genderToken.FindStringSubmatch(line); m != nil {
					switch strings.ToLower(m[1]) {
					case "male", "m":
						out.Gender = "male"
					case "female", "f":
						out.Gender = "female"
					}
				}
			}
		}

		// Addresses are the long unlabeled lines.
		if out.Address == "" && len(line) > 30 && !otherLabel.MatchString(line) {
			out.Address = line
		}
	}
	return out
}

// ConfidenceScore weighs recovered fields into a 0..100 confidence.
func (f *ExtractedFields) ConfidenceScore() float64 {
	score := 0.0
	if cnicFormatted.MatchString(f.CNIC) {
		score += 30
	}
	if len(f.Name) > 2 {
		score += 25
	}
	if len(f.FatherName) > 2 {
		score += 20
	}
	if f.DateOfBirth != "" {
		score += 15
	}
	if len(f.Address) > 10 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func cleanValue(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ":："))
}
