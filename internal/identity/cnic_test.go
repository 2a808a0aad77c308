package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validMaleCNIC   = "15059-0123456-7"
	validFemaleCNIC = "15059-0123466-6"
	badChecksumCNIC = "15059-0123456-8"
)

func TestIsValidCNIC(t *testing.T) {
	tests := []struct {
		name string
		cnic string
		want bool
	}{
		{"valid male", validMaleCNIC, true},
		{"valid female", validFemaleCNIC, true},
		{"bad check digit", badChecksumCNIC, false},
		{"unformatted valid", "1505901234567", true},
		{"too short", "15059-012345-7", false},
		{"too long", "15059-01234567-7", false},
		{"letters", "15059-012345a-7", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCNIC(tt.cnic))
		})
	}
}

func TestIsValidCNIC_DetectsSingleDigitCorruption(t *testing.T) {
	// Flipping any single digit by one must break the checksum.
	base := NormalizeCNIC(validMaleCNIC)
	require.Len(t, base, 13)
	for i := 0; i < 13; i++ {
		b := []byte(base)
		d := b[i] - '0'
		b[i] = byte((d+1)%10) + '0'
		// Weight-2 positions can survive a +5 flip only; a +1 flip never can.
		assert.False(t, IsValidCNIC(string(b)), "corruption at digit %d went undetected", i)
	}
}

func TestDecodeBirthDate(t *testing.T) {
	got, ok := DecodeBirthDate(validMaleCNIC)
	require.True(t, ok)
	assert.Equal(t, time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC), got)

	// Years below 50 land in the 2000s.
	got, ok = DecodeBirthDate("0101050000006")
	require.True(t, ok)
	assert.Equal(t, 2005, got.Year())

	// 31st of February is not a date.
	_, ok = DecodeBirthDate("3102900000000")
	assert.False(t, ok)
}

func TestDecodeGender(t *testing.T) {
	g, ok := DecodeGender(validMaleCNIC)
	require.True(t, ok)
	assert.Equal(t, GenderMale, g)

	g, ok = DecodeGender(validFemaleCNIC)
	require.True(t, ok)
	assert.Equal(t, GenderFemale, g)
}

func TestFormatCNIC(t *testing.T) {
	assert.Equal(t, validMaleCNIC, FormatCNIC("1505901234567"))
	assert.Equal(t, validMaleCNIC, FormatCNIC(validMaleCNIC))
	assert.Equal(t, "12345", FormatCNIC("12345"))
}

func validRecord() Record {
	return Record{
		CNIC:        validMaleCNIC,
		FullName:    "Ahmed Khan",
		FatherName:  "Imran Khan",
		DateOfBirth: time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		Gender:      GenderMale,
		PhoneNumber: "03001234567",
		City:        "Peshawar",
	}
}

var validateNow = time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)

func TestRecordValidate(t *testing.T) {
	t.Run("valid record passes", func(t *testing.T) {
		assert.NoError(t, validRecord().Validate(validateNow))
	})

	t.Run("dob must agree with cnic", func(t *testing.T) {
		r := validRecord()
		r.DateOfBirth = time.Date(1991, time.May, 15, 0, 0, 0, 0, time.UTC)
		assert.Error(t, r.Validate(validateNow))
	})

	t.Run("gender must agree with cnic", func(t *testing.T) {
		r := validRecord()
		r.Gender = GenderFemale
		assert.Error(t, r.Validate(validateNow))
	})

	t.Run("checksum failure rejected", func(t *testing.T) {
		r := validRecord()
		r.CNIC = badChecksumCNIC
		assert.Error(t, r.Validate(validateNow))
	})

	t.Run("numeric name rejected", func(t *testing.T) {
		r := validRecord()
		r.FullName = "Ahmed 2"
		assert.Error(t, r.Validate(validateNow))
	})

	t.Run("bad phone rejected", func(t *testing.T) {
		r := validRecord()
		r.PhoneNumber = "12345"
		assert.Error(t, r.Validate(validateNow))
	})
}

func TestRecordValidate_AgeBounds(t *testing.T) {
	record := func(cnic string, dob time.Time, g Gender) Record {
		r := validRecord()
		r.CNIC = cnic
		r.DateOfBirth = dob
		r.Gender = g
		return r
	}

	t.Run("minor rejected", func(t *testing.T) {
		r := record("15051-0123456-5", time.Date(2010, time.May, 15, 0, 0, 0, 0, time.UTC), GenderMale)
		err := r.Validate(validateNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "18")
	})

	t.Run("eighteenth birthday today still rejected", func(t *testing.T) {
		r := record("30080-8123456-2", time.Date(2008, time.August, 30, 0, 0, 0, 0, time.UTC), GenderFemale)
		assert.Error(t, r.Validate(validateNow))
	})

	t.Run("one day past eighteen accepted", func(t *testing.T) {
		r := record("29080-8123456-5", time.Date(2008, time.August, 29, 0, 0, 0, 0, time.UTC), GenderMale)
		assert.NoError(t, r.Validate(validateNow))
	})

	t.Run("hundredth birthday today rejected", func(t *testing.T) {
		now := time.Date(2051, time.June, 1, 12, 0, 0, 0, time.UTC)
		r := record("01065-1123456-6", time.Date(1951, time.June, 1, 0, 0, 0, 0, time.UTC), GenderFemale)
		assert.Error(t, r.Validate(now))
	})

	t.Run("one day short of a hundred accepted", func(t *testing.T) {
		now := time.Date(2051, time.June, 1, 12, 0, 0, 0, time.UTC)
		r := record("02065-1123456-4", time.Date(1951, time.June, 2, 0, 0, 0, 0, time.UTC), GenderFemale)
		assert.NoError(t, r.Validate(now))
	})
}

func TestRecordAgeAt(t *testing.T) {
	r := validRecord()
	now := time.Date(2026, time.May, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 35, r.AgeAt(now))
	assert.Equal(t, 36, r.AgeAt(now.AddDate(0, 0, 1)))
}

func TestRecordNormalize(t *testing.T) {
	r := Record{CNIC: "1505901234567", FullName: "  Ahmed   Khan "}
	r.Normalize()
	assert.Equal(t, validMaleCNIC, r.CNIC)
	assert.Equal(t, "Ahmed Khan", r.FullName)
}
