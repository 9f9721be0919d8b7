package metadata

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// text chunks larger than this are skipped rather than buffered
const maxTextChunk = 1 << 20

// readPNGText collects keyword → text from tEXt, zTXt and iTXt chunks.
// The first occurrence of a keyword wins.
func readPNGText(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return parsePNGText(bufio.NewReader(f))
}

func parsePNGText(r io.Reader) (map[string]string, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return nil, errors.New("not a PNG file")
	}

	out := make(map[string]string)
	var hdr [8]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		typ := string(hdr[4:8])

		isText := typ == "tEXt" || typ == "zTXt" || typ == "iTXt"
		if !isText || length > maxTextChunk {
			// skip data and CRC
			if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
				return nil, fmt.Errorf("skip %s chunk: %w", typ, err)
			}
			if typ == "IEND" {
				return out, nil
			}
			continue
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("read %s chunk: %w", typ, err)
		}
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return nil, fmt.Errorf("read %s crc: %w", typ, err)
		}

		key, text, err := decodeTextChunk(typ, data)
		if err != nil {
			// one bad chunk should not hide the others
			continue
		}
		if _, dup := out[key]; !dup {
			out[key] = text
		}
	}
}

func decodeTextChunk(typ string, data []byte) (string, string, error) {
	key, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(key) == 0 {
		return "", "", errors.New("missing keyword")
	}
	keyword, err := latin1(key)
	if err != nil {
		return "", "", err
	}

	switch typ {
	case "tEXt":
		text, err := latin1(rest)
		return keyword, text, err
	case "zTXt":
		if len(rest) < 1 {
			return "", "", errors.New("truncated zTXt")
		}
		raw, err := inflate(rest[1:])
		if err != nil {
			return "", "", err
		}
		text, err := latin1(raw)
		return keyword, text, err
	case "iTXt":
		if len(rest) < 2 {
			return "", "", errors.New("truncated iTXt")
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		// language tag, then translated keyword
		for i := 0; i < 2; i++ {
			var found bool
			_, rest, found = bytes.Cut(rest, []byte{0})
			if !found {
				return "", "", errors.New("truncated iTXt")
			}
		}
		if compressed {
			raw, err := inflate(rest)
			if err != nil {
				return "", "", err
			}
			rest = raw
		}
		return keyword, string(rest), nil
	}
	return "", "", fmt.Errorf("unsupported chunk %s", typ)
}

func latin1(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxTextChunk))
}
