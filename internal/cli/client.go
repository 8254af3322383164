package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	bookvaluev1 "github.com/simaogato/bookvalue-backend/internal/adapter/grpc/bookvalue/v1"
)

type rpc func(bookvaluev1.ValuationServiceClient, context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

// call connects, sends req with the token attached and prints the response
func call(cmd *cobra.Command, opts *RootOptions, req map[string]interface{}, fn rpc) error {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts.DialOptions...)
	conn, err := grpc.NewClient(opts.Addr, dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.Addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()
	if opts.Token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+opts.Token)
	}

	if opts.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "-> %s %s\n", opts.Addr, protojson.Format(in))
	}

	out, err := fn(bookvaluev1.NewValuationServiceClient(conn), ctx, in)
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), opts.Format, out)
}

func render(w io.Writer, format string, out *structpb.Struct) error {
	if format == "json" {
		b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	fields := out.GetFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, textValue(fields[k])); err != nil {
			return err
		}
	}
	return nil
}

func textValue(v *structpb.Value) string {
	switch v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return v.GetStringValue()
	case *structpb.Value_NullValue:
		return "-"
	case *structpb.Value_ListValue:
		items := v.GetListValue().GetValues()
		lines := make([]string, 0, len(items))
		for _, item := range items {
			b, _ := protojson.Marshal(item)
			lines = append(lines, "  "+string(b))
		}
		if len(lines) == 0 {
			return "[]"
		}
		return "\n" + strings.Join(lines, "\n")
	}
	b, _ := protojson.Marshal(v)
	return string(b)
}
