package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"GYST-Loop/sdk/go/gyst"
)

func main() {
	baseURL := flag.String("url", "http://127.0.0.1:8080", "gystd base url")
	flag.Parse()

	client, err := gyst.NewClient(*baseURL, nil)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := client.CreateSession(ctx, "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("session %s starts at %s\n", sess.ID, sess.Section)

	for _, y := range []float64{0, 1000, 2000, 3000, 4000} {
		frame, err := client.Frame(ctx, gyst.FrameQuery{ScrollY: y, PinStart: 1000})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("scroll=%-5.0f phase=%d %s\n", y, frame.Phase, frame.Label)
	}

	sess, err = client.Report(ctx, sess.ID, "problem")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("session %s now at %s\n", sess.ID, sess.Section)
}
