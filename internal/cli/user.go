package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lab-reservation-server/internal/model"
	"lab-reservation-server/internal/service"
)

const minPasswordLength = 6

func newUserCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "用户管理",
	}
	cmd.AddCommand(newUserCreateCommand(opts))
	return cmd
}

func newUserCreateCommand(opts *options) *cobra.Command {
	var (
		code  string
		name  string
		role  string
		phone string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "创建用户（用于初始化管理员账号）",
		Example: `  labctl user create --code A001 --name 管理员 --role 管理员
  echo 'secret-pw' | labctl user create --code T001 --name 王老师 --role teacher`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := model.ParseRole(role)
			if err != nil {
				return fmt.Errorf("无效的角色 %q，可选: 学生/教师/管理员", role)
			}

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			e, err := opts.open()
			if err != nil {
				return err
			}
			defer e.close()

			req := &service.CreateUserRequest{
				Code:     code,
				Name:     name,
				Role:     r,
				Password: password,
			}
			if phone != "" {
				req.Phone = &phone
			}

			// 命令行没有登录身份，以空调用者创建，审计记录的操作人为空
			users := service.NewUserService(e.store, e.cfg.Auth.PasswordScheme)
			user, err := users.Create(cmd.Context(), service.Caller{}, req)
			if err != nil {
				if service.KindOf(err) == service.KindPersistence {
					return fmt.Errorf("创建用户失败: %w", err)
				}
				return errors.New(service.MessageOf(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ 用户创建成功: #%d %s (%s, %s)\n", user.ID, user.Name, user.Code, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "学号/工号（登录账号）")
	cmd.Flags().StringVar(&name, "name", "", "姓名")
	cmd.Flags().StringVar(&role, "role", "", "角色: 学生/教师/管理员 或 student/teacher/admin")
	cmd.Flags().StringVar(&phone, "phone", "", "手机号（可选）")
	cmd.MarkFlagRequired("code")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("role")
	return cmd
}

// readPassword 读取密码
// 终端上隐藏输入并要求确认，否则从标准输入读一行（便于脚本调用）
func readPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	out := cmd.ErrOrStderr()

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "请输入密码: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("读取密码失败: %w", err)
		}
		fmt.Fprint(out, "请再次输入密码: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("读取密码失败: %w", err)
		}
		if string(first) != string(second) {
			return "", errors.New("两次输入的密码不一致")
		}
		return checkPassword(string(first))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	return checkPassword(strings.TrimRight(line, "\r\n"))
}

func checkPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("密码至少 %d 位", minPasswordLength)
	}
	return password, nil
}
