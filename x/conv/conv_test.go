package conv

import "testing"

func TestItoa(t *testing.T) {
	var buf [24]byte
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-7, "-7"},
		{65535, "65535"},
		{-2000000, "-2000000"},
	}
	for _, c := range cases {
		if got := string(Itoa(buf[:], c.in)); got != c.want {
			t.Errorf("Itoa(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatMilli(t *testing.T) {
	var buf [24]byte
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.000"},
		{2500, "2.500"},
		{-50, "-0.050"},
		{1001, "1.001"},
		{60000, "60.000"},
	}
	for _, c := range cases {
		if got := string(FormatMilli(buf[:], c.in)); got != c.want {
			t.Errorf("FormatMilli(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMicroToMilli(t *testing.T) {
	if got := MicroToMilli(2_000_499); got != 2000 {
		t.Errorf("round down: got %d", got)
	}
	if got := MicroToMilli(2_000_500); got != 2001 {
		t.Errorf("round up: got %d", got)
	}
	if got := MicroToMilli(-1500); got != -2 {
		t.Errorf("negative: got %d", got)
	}
}
