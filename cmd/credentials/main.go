package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/betbot/futurebot/pkg/secretstore"
)

func main() {
	var (
		inPath    = flag.String("in", "", "input .env file path (empty: prompt on the terminal)")
		dbPath    = flag.String("badger", getenv("FUTUREBOT_SECRET_DB", "data/secrets.badger"), "badger secrets db path")
		secretKey = flag.String("secret-key", getenv("FUTUREBOT_SECRET_KEY", ""), "badger encryption key (32 bytes base64/hex)")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("secret key is required: set FUTUREBOT_SECRET_KEY or pass -secret-key"))
	}

	var creds secretstore.Credentials
	if *inPath != "" {
		creds, err = readDotEnv(*inPath)
	} else {
		creds, err = prompt()
	}
	if err != nil {
		fatal(err)
	}
	if !creds.Complete() {
		fatal(fmt.Errorf("both BINANCE_API_KEY and BINANCE_API_SECRET are required"))
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	if err := ss.SaveCredentials(creds); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "已写入 API 凭据到 badger：%s\n", *dbPath)
}

func readDotEnv(path string) (secretstore.Credentials, error) {
	kv, err := godotenv.Read(path)
	if err != nil {
		return secretstore.Credentials{}, err
	}
	return secretstore.Credentials{
		APIKey:    kv["BINANCE_API_KEY"],
		APISecret: kv["BINANCE_API_SECRET"],
	}, nil
}

// prompt reads the key in clear and the secret without echo.
func prompt() (secretstore.Credentials, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return secretstore.Credentials{}, fmt.Errorf("stdin is not a terminal: pass -in <.env>")
	}

	fmt.Fprint(os.Stderr, "BINANCE_API_KEY: ")
	key, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return secretstore.Credentials{}, err
	}
	fmt.Fprint(os.Stderr, "BINANCE_API_SECRET: ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return secretstore.Credentials{}, err
	}
	return secretstore.Credentials{
		APIKey:    strings.TrimSpace(key),
		APISecret: strings.TrimSpace(string(secret)),
	}, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
