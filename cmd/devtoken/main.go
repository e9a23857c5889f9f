// 開発用JWTトークン発行CLIのエントリポイント。
// Gatewayと同じ秘密鍵でHS256トークンを署名し、標準出力に書き出す。
//
//	JWT_SECRET=dev-secret-key devtoken --user-id u-1 --email alice@example.com
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/nao1215/minishop/pkg/middleware"
)

// options はコマンドライン引数。
type options struct {
	UserID string        `long:"user-id" description:"トークンのsubjectにするユーザーID" required:"true"`
	Email  string        `long:"email" description:"トークンに含めるメールアドレス"`
	TTL    time.Duration `long:"ttl" default:"24h" description:"トークンの有効期間"`
	Secret string        `long:"secret" env:"JWT_SECRET" default:"dev-secret-key" description:"署名用の秘密鍵"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		log.Fatalln(err)
	}
}

// run は引数を解析してトークンを発行し、wに書き出す。
func run(args []string, w io.Writer) error {
	opts := &options{}
	if _, err := flags.ParseArgs(opts, args); err != nil {
		return err
	}
	if opts.TTL <= 0 {
		return fmt.Errorf("--ttlは正の値を指定してください: %s", opts.TTL)
	}

	token, err := middleware.GenerateJWT(opts.Secret, opts.UserID, opts.Email, opts.TTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
