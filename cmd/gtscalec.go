package cmd

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/karasz/gtscale/tai64"
	"github.com/karasz/gtscale/timescale"
)

const clientTimeout = 2 * time.Second

// parseGTScaleCArgs returns the server address and the query to send.
// Without a query the current time is converted.
func parseGTScaleCArgs(args []string, now time.Time) (string, []byte, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", nil, errors.New("usage: gtscalec server[:port] [@label|utc-time]")
	}
	addr := args[0]
	if _, _, err := net.SplitHostPort(addr); err != nil {
		if net.ParseIP(addr) == nil {
			return "", nil, fmt.Errorf("invalid server address: %s", addr)
		}
		addr = net.JoinHostPort(addr, strings.TrimPrefix(defaultPort, ":"))
	}

	if len(args) == 1 {
		t, err := timescale.NewConverter(timescale.System()).TimeToTAI(now)
		if err != nil {
			return "", nil, err
		}
		l, err := t.Label()
		if err != nil {
			return "", nil, err
		}
		return addr, utcQuery(l), nil
	}

	q := args[1]
	if strings.HasPrefix(q, "@") {
		l, err := tai64.Parse(q)
		if err != nil {
			return "", nil, err
		}
		return addr, utcQuery(l), nil
	}
	u, err := timescale.ParseUTC(q)
	if err != nil {
		return "", nil, err
	}
	return addr, taiQuery(u.Day(), u.NanoOfDay()), nil
}

func exchange(addr string, query []byte) (conversion, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return conversion{}, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return conversion{}, err
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write(query); err != nil {
		return conversion{}, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(clientTimeout)); err != nil {
		return conversion{}, err
	}
	buf := make([]byte, answerLength+1)
	n, err := conn.Read(buf)
	if err != nil {
		return conversion{}, err
	}
	return decodeAnswer(buf[:n])
}

// printConversion writes an answer. The UTC fields are formatted as sent,
// so a leap second the local table does not know still prints as :60.
func printConversion(w io.Writer, c conversion) error {
	y, m, d := timescale.Date(c.day)
	sod := c.nanoOfDay / 1e9
	hh, mm, ss := sod/3600, sod/60%60, sod%60
	if hh == 24 {
		hh, mm, ss = 23, 59, 60
	}
	_, err := fmt.Fprintf(w, "tai: %s\nutc: %04d-%02d-%02dT%02d:%02d:%02d.%09dZ\ntai-utc: %d\n",
		c.label, y, m, d, hh, mm, ss, c.nanoOfDay%1e9, c.offset)
	return err
}

// GTScaleCRun asks a gtscaled server to convert a time.
func GTScaleCRun(args []string) int {
	addr, query, err := parseGTScaleCArgs(args, time.Now())
	if err != nil {
		_, _ = fmt.Println(err)
		return 111
	}
	c, err := exchange(addr, query)
	if err != nil {
		_, _ = fmt.Println(err)
		return 111
	}
	if err := printConversion(os.Stdout, c); err != nil {
		return 111
	}
	return 0
}
