package tablo

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"time"
)

// Device-family-wide signing material. The firmware validates HMAC-MD5 over
// the canonical request string; MD5 is a hard compatibility requirement, a
// stronger digest fails validation on the device.
const (
	deviceKey = "ljpg6ZkwShVv8aI12E2LP55Ep8vq1uYDPvX0DdTB"
	hashKey   = "6l8jU5N43cEilqItmT3U2M2PFM3qPziilXqau9ys"
)

// signDeviceRequest builds the Authorization value for one local-device call.
// date must be byte-identical to the Date header sent with the request, or
// the device rejects the signature.
func signDeviceRequest(method, path, body, date string) string {
	bodyHash := ""
	if body != "" {
		sum := md5.Sum([]byte(body))
		bodyHash = hex.EncodeToString(sum[:])
	}
	payload := method + "\n" + path + "\n" + bodyHash + "\n" + date
	mac := hmac.New(md5.New, []byte(hashKey))
	mac.Write([]byte(payload))
	return "tablo:" + deviceKey + ":" + hex.EncodeToString(mac.Sum(nil))
}

// deviceDate formats t as the RFC 1123 GMT date string the device expects.
func deviceDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
