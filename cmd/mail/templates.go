package main

import (
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

// loadMailTemplates 在启动时解析所有邮件模板，键为邮件类型
func loadMailTemplates(dir string) (map[string]mailTemplate, error) {
	files := []struct {
		mailType string
		file     string
		subject  string
	}{
		{domain.MailTypeCreateUser, "new_account_email.html", "基站规划系统 - 账户信息"},
		{domain.MailTypePlanningFinished, "planning_finished_email.html", "基站规划系统 - 规划任务已结束"},
	}

	templates := make(map[string]mailTemplate, len(files))
	for _, f := range files {
		tmpl, err := template.ParseFiles(filepath.Join(dir, f.file))
		if err != nil {
			return nil, err
		}
		templates[f.mailType] = mailTemplate{subject: f.subject, body: tmpl}
	}

	return templates, nil
}
