// vapidkeys печатает новую пару VAPID ключей в виде секции push для config.yml
package main

import (
	"flag"
	"fmt"
	"os"

	"todoTracker/internal/config"

	"github.com/SherClockHolmes/webpush-go"
	"gopkg.in/yaml.v3"
)

func main() {
	subject := flag.String("subject", "mailto:admin@example.com", "контакт для push-сервисов (mailto: или https:)")
	flag.Parse()

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		fmt.Fprintf(os.Stderr, "генерация ключей: %v\n", err)
		os.Exit(1)
	}

	out, err := yaml.Marshal(map[string]config.PushConfig{
		"push": {
			VapidPublicKey:  publicKey,
			VapidPrivateKey: privateKey,
			Subject:         *subject,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "сериализация: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(out))
}
