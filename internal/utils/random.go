package utils

import (
	"fmt"
	"math/rand"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/tower-planner/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var roles = []domain.Role{
	domain.RoleOperator,
	domain.RoleAdmin,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// GenerateRandomGrid 随机生成一个人口网格，大约 sparsity 比例的街区没有人口
func GenerateRandomGrid(rows, cols int, maxPopulation int64, sparsity float64) [][]int64 {
	grid := make([][]int64, rows)
	for i := range grid {
		grid[i] = make([]int64, cols)
		for j := range grid[i] {
			if rand.Float64() < sparsity {
				continue
			}
			grid[i][j] = rand.Int63n(maxPopulation + 1)
		}
	}
	return grid
}

// GenerateRandomProblemConfig 随机生成一份问题配置，满意度阈值升序排列
func GenerateRandomProblemConfig() domain.ProblemConfig {
	n := rand.Intn(4) + 2
	levels := make([]float64, n)
	scores := make([]float64, n)

	level := 0.0
	for i := 0; i < n; i++ {
		level += float64(rand.Intn(20) + 1)
		levels[i] = level
		scores[i] = float64((i + 1) * 100)
	}

	return domain.ProblemConfig{
		TowerConstructionCost:  float64(rand.Intn(1000) + 100),
		TowerMaintenanceCost:   float64(rand.Intn(10) + 1),
		UserSatisfactionLevels: levels,
		UserSatisfactionScores: scores,
	}
}

func GenerateRandomDataset() *domain.Dataset {
	rows := rand.Intn(20) + 5
	cols := rand.Intn(20) + 5

	return &domain.Dataset{
		Name:        "街区人口" + GenerateRandomID(3, 3),
		Description: fmt.Sprintf("随机生成的 %d x %d 人口网格", rows, cols),
		Grid:        GenerateRandomGrid(rows, cols, 500, 0.2),
		Problem:     GenerateRandomProblemConfig(),
	}
}
